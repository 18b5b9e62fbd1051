//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/flourish/internal/errors"
)

// openFileNoFollow opens path. Windows has no O_NOFOLLOW; ValidatePath has
// already rejected symlinks.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		if os.IsNotExist(err) && flag&os.O_CREATE == 0 {
			return nil, errors.NewNotFound("file", path)
		}
		return nil, err
	}
	return f, nil
}
