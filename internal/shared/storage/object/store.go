package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/Megamind2600/resumerocketpro/internal/shared/util"
)

const originalsDir = "resumes"

// ErrNotFound is returned by Get for a key that holds no object.
var ErrNotFound = errors.New("object not found")

// Object is one uploaded resume original.
type Object struct {
	Owner       string
	FileName    string
	ContentType string
	Data        []byte
}

// ObjectStore archives uploaded resume originals so they can be re-processed later.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builds the storage key for an upload:
// resumes/<owner key>/<yyyy>/<mm>/<uuid>_<file name>.
func Key(owner, fileName string, at time.Time) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("object key: %w", err)
	}
	at = at.UTC()
	return path.Join(
		originalsDir,
		util.OwnerKey(owner),
		fmt.Sprintf("%04d", at.Year()),
		fmt.Sprintf("%02d", int(at.Month())),
		uuid.NewString()+"_"+name,
	), nil
}
