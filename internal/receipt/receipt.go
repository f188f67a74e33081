// Package receipt models the per-session receipt as an injected, fallible
// capability. Document download and text extraction live outside this
// module; this package only interprets what they produce.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

// Source fetches the receipt fields for a session ID. Implementations
// report failures with domain.ErrReceiptNotAvailable,
// domain.ErrReceiptProcessing or domain.ErrReceiptNotAccessible.
type Source interface {
	Fetch(ctx context.Context, id string) (domain.Receipt, error)
}

// StatusFromError maps a Source error onto a receipt status.
func StatusFromError(err error) domain.ReceiptStatus {
	switch {
	case err == nil:
		return domain.ReceiptOK
	case errors.Is(err, domain.ErrReceiptNotAvailable):
		return domain.ReceiptNotAvailable
	case errors.Is(err, domain.ErrReceiptNotAccessible):
		return domain.ReceiptNotAccessible
	case errors.Is(err, domain.ErrReceiptProcessing):
		return domain.ReceiptProcessingFailed
	default:
		return domain.ReceiptProcessingFailed
	}
}

// StatusFromLegacy maps the error strings written by the scraper export
// ("pdf_error") onto a receipt status. Status names themselves are
// accepted as well.
func StatusFromLegacy(s string) domain.ReceiptStatus {
	v := strings.TrimSpace(s)
	switch v {
	case "":
		return domain.ReceiptOK
	case "PDF not available":
		return domain.ReceiptNotAvailable
	case "PDF processing failed":
		return domain.ReceiptProcessingFailed
	case "PDF download button not accessible":
		return domain.ReceiptNotAccessible
	case "PDF not processed":
		return domain.ReceiptNotProcessed
	}
	switch st := domain.ReceiptStatus(v); st {
	case domain.ReceiptOK, domain.ReceiptNotAvailable, domain.ReceiptProcessingFailed,
		domain.ReceiptNotAccessible, domain.ReceiptNotProcessed:
		return st
	}
	return domain.ReceiptProcessingFailed
}

// ParseText extracts receipt fields from the text of the receipt's first
// page. Fields that are not found stay empty.
func ParseText(text string) domain.Receipt {
	rc := domain.Receipt{Status: domain.ReceiptOK}
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		switch {
		case strings.Contains(line, "Vehicle"):
			if len(fields) > 0 {
				rc.LicensePlate = fields[len(fields)-1]
			}
		case strings.Contains(line, "Tarifa base"):
			rc.BaseTariff = tariffToken(fields)
		case strings.Contains(line, "Tarifa aplicada"):
			rc.AppliedTariff = tariffToken(fields)
		case strings.Contains(line, "Distintiu ambiental"):
			parts := strings.SplitN(line, "Distintiu ambiental", 2)
			label := parts[len(parts)-1]
			label = strings.SplitN(label, "-", 2)[0]
			rc.EnvironmentalLabel = strings.TrimSpace(label)
		}
	}
	return rc
}

func tariffToken(fields []string) string {
	if len(fields) < 3 {
		return ""
	}
	return strings.ReplaceAll(fields[2], "€/h", "")
}

// StaticSource serves receipts from memory. Unknown IDs are not available.
type StaticSource map[string]domain.Receipt

func (s StaticSource) Fetch(_ context.Context, id string) (domain.Receipt, error) {
	rc, ok := s[id]
	if !ok {
		return domain.Receipt{}, fmt.Errorf("%w: %s", domain.ErrReceiptNotAvailable, id)
	}
	return rc, nil
}

// DirSource reads extracted receipt text from <Dir>/<id>.txt.
type DirSource struct {
	Dir string
}

func (s DirSource) Fetch(ctx context.Context, id string) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return domain.Receipt{}, fmt.Errorf("%w: invalid id %q", domain.ErrReceiptNotAccessible, id)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir, id+".txt"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Receipt{}, fmt.Errorf("%w: %s", domain.ErrReceiptNotAvailable, id)
		}
		return domain.Receipt{}, fmt.Errorf("%w: %v", domain.ErrReceiptNotAccessible, err)
	}

	rc := ParseText(string(data))
	if rc.BaseTariff == "" && rc.EnvironmentalLabel == "" && rc.LicensePlate == "" && rc.AppliedTariff == "" {
		return domain.Receipt{}, fmt.Errorf("%w: no receipt fields in %s", domain.ErrReceiptProcessing, id)
	}
	return rc, nil
}
