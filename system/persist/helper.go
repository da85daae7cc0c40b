package persist

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileHelper contains a list of configurations to be loaded, saved, and applied.
// Each configuration persists to its own file under Dir, named after the
// configuration. The files hold raw binary state words, not a text format,
// so a partial write is corruption and is treated as an error.
type FileHelper struct {
	configs map[string]Registry
	dir     string
}

var _ ConfigRegistry = &FileHelper{}

// NewFileHelper returns a helper to persist config to files under dir.
func NewFileHelper(dir string) (*FileHelper, error) {
	if dir == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "cannot create state directory")
	}
	return &FileHelper{
		configs: make(map[string]Registry),
		dir:     dir,
	}, nil
}

// Register will add the config to the list
func (h *FileHelper) Register(config Registry) {
	h.configs[config.Name()] = config
}

// Load will retrieve and populate configs from their state files. A
// missing file is not an error; the config keeps its defaults.
func (h *FileHelper) Load() error {
	for _, config := range h.configs {
		path := filepath.Join(h.dir, config.Name())
		v, err := ioutil.ReadFile(path)
		if os.IsNotExist(err) {
			log.Printf("persist: no state file for \"%s\", using defaults\n", config.Name())
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "cannot load \"%s\"", config.Name())
		}
		log.Printf("persist: loading \"%s\" from %s\n", config.Name(), path)
		if err := config.Load(v); err != nil {
			return errors.Wrapf(err, "cannot load \"%s\"", config.Name())
		}
	}
	return nil
}

// Save will persist all the configs to their state files.
func (h *FileHelper) Save() error {
	for _, config := range h.configs {
		path := filepath.Join(h.dir, config.Name())
		value := config.Value()
		log.Printf("persist: saving \"%s\" to %s\n", config.Name(), path)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return errors.Wrapf(err, "cannot save \"%s\"", config.Name())
		}
		n, err := f.Write(value)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err == nil && n != len(value) {
			err = errors.New("short write")
		}
		if err != nil {
			// the file may hold a truncated state word now
			os.Remove(path)
			return errors.Wrapf(err, "cannot save \"%s\"", config.Name())
		}
	}
	return nil
}

// Apply will apply each config accordingly. This is usually called after Load()
func (h *FileHelper) Apply() error {
	for _, config := range h.configs {
		log.Printf("persist: applying \"%s\" config\n", config.Name())
		if err := config.Apply(); err != nil {
			return err
		}
	}
	return nil
}

// Close will release resources of each config
func (h *FileHelper) Close() {
	for _, config := range h.configs {
		log.Printf("persist: closing \"%s\" config\n", config.Name())
		config.Close()
	}
}
