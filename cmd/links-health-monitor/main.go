package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kardianos/service"

	"github.com/stone-age-io/links-health-monitor/internal/agent"
	"github.com/stone-age-io/links-health-monitor/internal/config"
)

var version = "dev"

// program adapts the monitor to the service manager
type program struct {
	configPath string
	agent      *agent.Agent
	done       chan struct{}
}

func (p *program) Start(s service.Service) error {
	a, err := agent.New(p.configPath, version)
	if err != nil {
		return err
	}
	p.agent = a
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := a.Run(); err != nil {
			log.Printf("monitor stopped with error: %v", err)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.agent == nil {
		return nil
	}
	p.agent.Stop()
	<-p.done
	return nil
}

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file with secrets")
	serviceCmd := flag.String("service", "", "service control: install, uninstall, start, stop, restart")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// secrets such as the PocketBase password may live in a dotenv file
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load %s: %v", *envFile, err)
	}

	svcConfig := &service.Config{
		Name:        "links-health-monitor",
		DisplayName: "Links Health Monitor",
		Description: "Checks friend links on a schedule and reports their health",
		Arguments:   []string{"-config", *configPath, "-env", *envFile},
	}

	prg := &program{configPath: *configPath}
	svc, err := service.New(prg, svcConfig)
	if err != nil {
		log.Fatalf("failed to create service: %v", err)
	}

	if *serviceCmd != "" {
		if err := service.Control(svc, *serviceCmd); err != nil {
			log.Fatalf("service %s failed: %v (valid actions: %v)", *serviceCmd, err, service.ControlAction)
		}
		fmt.Printf("service %s succeeded\n", *serviceCmd)
		return
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("monitor failed: %v", err)
	}
}
