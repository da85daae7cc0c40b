// sensectl is a one-shot command line tool for the firmware attribute
// surface. It reads or writes a single attribute and exits; the running
// manager picks the change up on its next persist cycle.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/avakist/PHN16Manager/attributes"
	"github.com/avakist/PHN16Manager/controller"
	"github.com/avakist/PHN16Manager/system/dmi"
	"github.com/avakist/PHN16Manager/system/sense"
	"github.com/avakist/PHN16Manager/system/sensor"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  sensectl list\n")
	fmt.Fprintf(os.Stderr, "  sensectl get <attribute>\n")
	fmt.Fprintf(os.Stderr, "  sensectl set <attribute> <value>\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	var (
		model  = flag.String("model", "", "override the detected product name")
		dryRun = flag.Bool("dry-run", false, "log firmware commands without submitting them")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	log.SetFlags(0)

	set, err := attributeSet(*model, *dryRun)
	if err != nil {
		log.Fatalf("sensectl: %+v", err)
	}

	switch args[0] {
	case "list":
		for _, name := range set.Names() {
			fmt.Println(name)
		}
	case "get":
		if len(args) != 2 {
			usage()
		}
		attr, err := set.Get(args[1])
		if err != nil {
			log.Fatalf("sensectl: %+v", err)
		}
		value, err := attr.Show()
		if err != nil {
			log.Fatalf("sensectl: %+v", err)
		}
		fmt.Println(value)
	case "set":
		if len(args) != 3 {
			usage()
		}
		attr, err := set.Get(args[1])
		if err != nil {
			log.Fatalf("sensectl: %+v", err)
		}
		if err := attr.Store(args[2]); err != nil {
			log.Fatalf("sensectl: %+v", err)
		}
	default:
		usage()
	}
}

func attributeSet(model string, dryRun bool) (*attributes.Set, error) {
	if model == "" {
		detected, err := dmi.ProductName()
		if err != nil {
			return nil, err
		}
		model = detected
	}

	dep, err := controller.GetDependencies(controller.RunConfig{
		Model:    model,
		StateDir: os.TempDir(),
		DryRun:   dryRun,
	})
	if err != nil {
		return nil, err
	}

	senseCtrl, err := sense.NewControl(dep.Channel)
	if err != nil {
		return nil, err
	}

	deps := attributes.Deps{
		Fan:      dep.Fan,
		Thermal:  dep.Thermal,
		Lighting: dep.Lighting,
		Sense:    senseCtrl,
		Battery:  dep.Battery,
	}
	if reader, err := sensor.NewReader(dep.Channel, dep.Hardware); err == nil {
		deps.Sensors = reader
	}

	return attributes.New(deps), nil
}
