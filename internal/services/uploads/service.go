// Package uploads imports debtor batch files: the raw file goes to object
// storage, the parsed rows become debtor records ready for validation.
package uploads

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile     = errors.New("upload file has no data rows")
	ErrMissingColumn = errors.New("upload file is missing a required column")
	ErrHasAttempts   = errors.New("upload has billing attempts and cannot be deleted")
)

// Expected CSV header columns. first_name, email, reference, bic and
// currency are optional.
var requiredColumns = []string{"last_name", "iban", "amount"}

type Service interface {
	// CreateFromCSV stores the raw file and imports its rows as debtors.
	// Rows that fail to parse are skipped and counted; structural checks
	// beyond parsing belong to the validation stage.
	CreateFromCSV(ctx context.Context, fileName string, data []byte) (*models.Upload, int, error)
	// Delete soft-deletes an upload that has no billing attempts yet.
	Delete(ctx context.Context, uploadID uint) error
}

type service struct {
	uploads repositories.UploadRepository
	debtors repositories.DebtorRepository
	storage storage.ObjectStorage
}

func NewService(
	uploads repositories.UploadRepository,
	debtors repositories.DebtorRepository,
	objectStorage storage.ObjectStorage,
) Service {
	if uploads == nil || debtors == nil {
		panic("repositories are required")
	}
	return &service{
		uploads: uploads,
		debtors: debtors,
		storage: objectStorage,
	}
}

func (s *service) CreateFromCSV(ctx context.Context, fileName string, data []byte) (*models.Upload, int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, ErrEmptyFile
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	upload := &models.Upload{FileName: fileName}
	if s.storage != nil {
		key := fmt.Sprintf("uploads/%s/%s", uuid.New().String(), fileName)
		if err := s.storage.Put(ctx, key, data, "text/csv"); err != nil {
			// The parsed rows are authoritative; losing the raw copy is
			// logged but does not block the import.
			log.Printf("[uploads] failed to store raw file %s: %v", fileName, err)
		} else {
			upload.StorageKey = key
		}
	}
	if err := s.uploads.Create(upload); err != nil {
		return nil, 0, fmt.Errorf("failed to create upload: %w", err)
	}

	imported, skipped := 0, 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		debtor, ok := s.parseRow(columns, row, upload.ID)
		if !ok {
			skipped++
			continue
		}
		if err := s.debtors.Create(debtor); err != nil {
			log.Printf("[uploads] upload %d: row import failed: %v", upload.ID, err)
			skipped++
			continue
		}
		imported++
	}
	if imported == 0 {
		// No row made it in; do not leave an empty upload behind.
		if _, err := s.uploads.SoftDeleteIfNoAttempts(upload.ID); err != nil {
			log.Printf("[uploads] upload %d: cleanup failed: %v", upload.ID, err)
		}
		return nil, 0, ErrEmptyFile
	}

	upload.TotalRows = imported
	if err := s.uploads.Update(upload); err != nil {
		return upload, skipped, err
	}
	return upload, skipped, nil
}

func (s *service) parseRow(columns map[string]int, row []string, uploadID uint) (*models.Debtor, bool) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return nil, false
	}
	iban := field("iban")
	if iban == "" {
		return nil, false
	}

	currency := strings.ToUpper(field("currency"))
	if currency == "" {
		currency = "EUR"
	}

	return &models.Debtor{
		UploadID:  uploadID,
		FirstName: field("first_name"),
		LastName:  field("last_name"),
		Email:     field("email"),
		Reference: field("reference"),
		IBAN:      iban,
		BIC:       field("bic"),
		Amount:    amount,
		Currency:  currency,
	}, true
}

func (s *service) Delete(ctx context.Context, uploadID uint) error {
	deleted, err := s.uploads.SoftDeleteIfNoAttempts(uploadID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrHasAttempts
	}
	return nil
}
