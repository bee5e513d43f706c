package capture

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves capture arguments to file paths. Existing files and "-"
// are kept as given; anything else is treated as a glob pattern, with "**"
// matching across directories. A pattern that matches no file is an error.
func Expand(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if arg == "-" {
			paths = append(paths, arg)
			continue
		}
		if _, err := os.Stat(arg); err == nil {
			paths = append(paths, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no capture matches %q", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
