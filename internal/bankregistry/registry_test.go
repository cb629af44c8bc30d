package bankregistry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupByCode(t *testing.T) {
	r := New()

	bank, err := r.LookupByCode("37040044")
	require.NoError(t, err)
	assert.Equal(t, "Commerzbank Koeln", bank.Name)
	assert.Equal(t, "COBADEFFXXX", bank.BIC)

	_, err = r.LookupByCode("99999999")
	assert.ErrorIs(t, err, ErrBankNotFound)
}

func TestLookupByBIC(t *testing.T) {
	r := New()

	t.Run("exact eleven-character form", func(t *testing.T) {
		bank, err := r.LookupByBIC("COBADEFFXXX")
		require.NoError(t, err)
		assert.Equal(t, "37040044", bank.Code)
	})

	t.Run("eight characters match the head office", func(t *testing.T) {
		bank, err := r.LookupByBIC("COBADEFF")
		require.NoError(t, err)
		assert.Equal(t, "37040044", bank.Code)
	})

	t.Run("a branch-specific entry wins over the head office", func(t *testing.T) {
		bank, err := r.LookupByBIC("HYVEDEMM300")
		require.NoError(t, err)
		assert.Equal(t, "UniCredit Bank Hamburg", bank.Name)
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		bank, err := r.LookupByBIC("cobadeffxxx")
		require.NoError(t, err)
		assert.Equal(t, "37040044", bank.Code)
	})

	t.Run("unknown bic", func(t *testing.T) {
		_, err := r.LookupByBIC("NOPEDE00XXX")
		assert.ErrorIs(t, err, ErrBankNotFound)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"code": "88888888", "bic": "TESTDE88", "name": "Testbank"}
	]`), 0o644))

	r := New()
	require.NoError(t, r.LoadFile(path))

	bank, err := r.LookupByCode("88888888")
	require.NoError(t, err)
	assert.Equal(t, "Testbank", bank.Name)

	// An eleven-character branch BIC resolves against the stored
	// eight-character head office.
	bank, err = r.LookupByBIC("TESTDE88ABC")
	require.NoError(t, err)
	assert.Equal(t, "Testbank", bank.Name)

	// Builtin entries survive the merge.
	_, err = r.LookupByCode("37040044")
	assert.NoError(t, err)

	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.json")))
}
