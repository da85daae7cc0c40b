package persist

import "log"

type dryFileHelper struct {
	ConfigRegistry
}

var _ ConfigRegistry = &dryFileHelper{}

// NewDryFileHelper returns a helper that loads and applies state but
// skips the save IOs.
func NewDryFileHelper(dir string) (ConfigRegistry, error) {
	helper, err := NewFileHelper(dir)
	if err != nil {
		return nil, err
	}
	log.Println("[dry run] persist: initializing state mirror without save IOs")
	return &dryFileHelper{
		ConfigRegistry: helper,
	}, nil
}

// Save will do nothing
func (d *dryFileHelper) Save() error {
	return nil
}
