package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	suture "github.com/thejerf/suture/v4"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/avakist/PHN16Manager/config"
	"github.com/avakist/PHN16Manager/controller"
	"github.com/avakist/PHN16Manager/supervisor"
	"github.com/avakist/PHN16Manager/supervisor/background"
	"github.com/avakist/PHN16Manager/system/dmi"
	"github.com/avakist/PHN16Manager/util"
)

// Compile time injected variables
var (
	Version = "v0.0.0-dev"
	IsDebug = "yes"
)

const defaultConfigPath = `C:\ProgramData\PHN16Manager\manager.yaml`

func main() {
	var (
		configPath = flag.String("config", defaultConfigPath, "path to the configuration file")
		dryRun     = flag.Bool("dry-run", false, "log firmware commands without submitting them")
		model      = flag.String("model", "", "override the detected product name")
	)
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[supervisor] cannot load configuration: %+v\n", err)
	}

	if IsDebug == "no" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   conf.Log.Path,
			MaxSize:    conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			MaxAge:     7,
			Compress:   true,
		})
	}

	log.Printf("PHN16Manager version: %s\n", Version)

	productName := conf.Model
	if *model != "" {
		productName = *model
	}
	if productName == "" {
		productName, err = dmi.ProductName()
		if err != nil {
			log.Fatalf("[supervisor] cannot detect product name: %+v\n", err)
		}
	}

	notifier := background.NewNotifier()

	evtHook := &supervisor.EventHook{
		Notifier: notifier.C,
	}

	controllerConfig := controller.RunConfig{
		Model:               productName,
		StateDir:            conf.StateDir,
		CycleThermalProfile: conf.CycleThermalProfile,
		DryRun:              *dryRun || conf.DryRun || os.Getenv("DRY_RUN") != "",
		NotifierCh:          notifier.C,
	}

	dep, err := controller.GetDependencies(controllerConfig)
	if err != nil {
		log.Fatalf("[supervisor] cannot get dependencies: %+v\n", err)
	}

	control, err := controller.New(controller.Config{
		Channel:  dep.Channel,
		Hardware: dep.Hardware,
		Thermal:  dep.Thermal,
		Lighting: dep.Lighting,
		Battery:  dep.Battery,
		Registry: dep.Registry,
		Notifier: notifier.C,
	})
	if err != nil {
		log.Fatalf("[supervisor] cannot create controller: %+v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	backgroundSupervisor := suture.New("backgroundSupervisor", suture.Spec{})
	backgroundSupervisor.Add(notifier)
	if conf.CheckUpdates {
		versionChecker, err := background.NewVersionCheck(Version, "avakist/PHN16Manager", notifier.C)
		if err != nil {
			log.Fatalf("[supervisor] cannot get version checker: %+v\n", err)
		}
		backgroundSupervisor.Add(versionChecker)
	}

	rootSupervisor := suture.New("Supervisor", suture.Spec{
		EventHook: evtHook.Event,
	})
	rootSupervisor.Add(backgroundSupervisor)
	rootSupervisor.Add(control)

	sigc := make(chan os.Signal, 1)

	go func() {
		notifier.C <- util.Notification{
			Message: "Starting up PHN16Manager",
		}
		supervisorErr := rootSupervisor.Serve(ctx)
		if supervisorErr != nil {
			log.Printf("[supervisor] rootSupervisor returns error: %+v\n", supervisorErr)
			sigc <- syscall.SIGTERM
		}
	}()

	signal.Notify(
		sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigc
	log.Printf("[supervisor] signal received: %+v\n", sig)

	cancel()
	time.Sleep(time.Second) // 1 second for grace period
}
