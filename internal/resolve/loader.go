package resolve

import (
	"fmt"
	"os"
	"strings"
)

// FileLoader reads rule documents from the local filesystem. Virtual
// salt:// paths are resolved against the master's file roots.
type FileLoader struct {
	// FileRoot maps salt:// locations onto the filesystem. Defaults to
	// /srv/salt.
	FileRoot string
}

const defaultFileRoot = "/srv/salt"

func (l FileLoader) Load(location string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(location, "salt://"); ok {
		root := l.FileRoot
		if root == "" {
			root = defaultFileRoot
		}

		location = root + "/" + rest
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("loading rule document: %w", err)
	}

	return data, nil
}
