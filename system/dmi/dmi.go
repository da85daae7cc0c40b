// Package dmi reads machine identity strings.
package dmi

import (
	"github.com/pkg/errors"

	wmiquery "github.com/bi-zone/wmi"
)

// Win32_ComputerSystemProduct names the WMI class to query.
type Win32_ComputerSystemProduct struct {
	Name string
}

// ProductName reads the DMI product name, the string the hardware
// table matches against.
func ProductName() (string, error) {
	var products []Win32_ComputerSystemProduct
	q := wmiquery.CreateQuery(&products, "")
	if err := wmiquery.Query(q, &products); err != nil {
		return "", errors.Wrap(err, "cannot query computer system product")
	}
	if len(products) == 0 {
		return "", errors.New("no computer system product instance")
	}
	return products[0].Name, nil
}
