package collection

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// MaxNameLength bounds collection names in characters.
const MaxNameLength = 64

var nameRegex = regexp.MustCompile(`^[\p{L}\p{N}_. -]+$`)

// Collection is the vector collection aggregate (immutable value object).
type Collection struct {
	name      string
	vectorDim int
	createdAt int64
}

// ValidateName checks a caller-supplied collection name.
// Letters, digits, space, underscore, dot and hyphen; 1-64 characters; no surrounding spaces.
func ValidateName(name string) error {
	if name == "" {
		return domain.NewValidationError("collection name", "is required")
	}
	if strings.TrimSpace(name) != name {
		return domain.NewValidationError("collection name", "must not start or end with spaces")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return domain.NewValidationError("collection name", fmt.Sprintf("is too long (max %d)", MaxNameLength))
	}
	if !nameRegex.MatchString(name) {
		return domain.NewValidationError("collection name", "may contain only letters, digits, spaces, '_', '.' and '-'")
	}
	return nil
}

// New validates and creates a Collection stamped with the current time.
func New(name string, vectorDim int) (Collection, error) {
	if err := ValidateName(name); err != nil {
		return Collection{}, err
	}
	if vectorDim <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive: %w", domain.ErrVectorDimMismatch)
	}
	return Collection{
		name:      name,
		vectorDim: vectorDim,
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, vectorDim int, createdAt int64) Collection {
	return Collection{name: name, vectorDim: vectorDim, createdAt: createdAt}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// VectorDim returns the embedding dimension every record must share.
func (c Collection) VectorDim() int { return c.vectorDim }

// CreatedAt returns the creation timestamp (unix millis, 0 when the backend does not track it).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Accepts reports whether a vector of length dim can be stored.
func (c Collection) Accepts(dim int) error {
	if dim != c.vectorDim {
		return fmt.Errorf("collection %q expects %d dims, got %d: %w", c.name, c.vectorDim, dim, domain.ErrVectorDimMismatch)
	}
	return nil
}
