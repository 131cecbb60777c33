// Copyright (c) 2022 Exograd SAS.
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY
// SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR
// IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/exograd/go-influx/dhttp"
	"github.com/exograd/go-influx/influx"
	"github.com/exograd/go-log"
	"github.com/exograd/go-program"
)

type DaemonCfg struct {
	name string

	Logger *log.LoggerCfg

	HTTPServers map[string]dhttp.ServerCfg
	HTTPClients map[string]dhttp.ClientCfg

	Influx *influx.ClientCfg
}

func NewDaemonCfg() DaemonCfg {
	return DaemonCfg{
		HTTPServers: make(map[string]dhttp.ServerCfg),
		HTTPClients: make(map[string]dhttp.ClientCfg),
	}
}

func (cfg DaemonCfg) AddHTTPServer(name string, serverCfg dhttp.ServerCfg) {
	if _, found := cfg.HTTPServers[name]; found {
		panic(fmt.Sprintf("duplicate http server %q", name))
	}

	cfg.HTTPServers[name] = serverCfg
}

func (cfg DaemonCfg) AddHTTPClient(name string, clientCfg dhttp.ClientCfg) {
	if _, found := cfg.HTTPClients[name]; found {
		panic(fmt.Sprintf("duplicate http client %q", name))
	}

	cfg.HTTPClients[name] = clientCfg
}

type Daemon struct {
	Cfg DaemonCfg
	Log *log.Logger

	service Service

	HTTPServers map[string]*dhttp.Server
	HTTPClients map[string]*dhttp.Client

	Influx *influx.Client

	Hostname string

	stopChan chan struct{}
}

func newDaemon(name string, cfg DaemonCfg, service Service) *Daemon {
	cfg.name = name

	return &Daemon{
		Cfg: cfg,

		service: service,

		stopChan: make(chan struct{}, 1),
	}
}

func (d *Daemon) init() error {
	d.Log = log.DefaultLogger(d.Cfg.name)

	initFuncs := []func() error{
		d.initHostname,
		d.initLogger,
		d.initHTTPServers,
		d.initHTTPClients,
		d.initInflux,
	}

	for _, initFunc := range initFuncs {
		if err := initFunc(); err != nil {
			return err
		}
	}

	return d.service.Init(d)
}

func (d *Daemon) initHostname() error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("cannot obtain hostname: %w", err)
	}

	d.Hostname = hostname

	return nil
}

func (d *Daemon) initLogger() error {
	if d.Cfg.Logger == nil {
		return nil
	}

	logger, err := log.NewLogger(d.Cfg.name, *d.Cfg.Logger)
	if err != nil {
		return fmt.Errorf("invalid logger configuration: %w", err)
	}

	d.Log = logger

	return nil
}

func (d *Daemon) initHTTPServers() error {
	d.HTTPServers = make(map[string]*dhttp.Server)

	for name, cfg := range d.Cfg.HTTPServers {
		cfg.Log = d.Log.Child("http-server", log.Data{"server": name})

		server, err := dhttp.NewServer(cfg)
		if err != nil {
			return fmt.Errorf("cannot create http server %q: %w", name, err)
		}

		d.HTTPServers[name] = server
	}

	return nil
}

func (d *Daemon) initHTTPClients() error {
	d.HTTPClients = make(map[string]*dhttp.Client)

	if d.Cfg.Influx != nil {
		cfg := influx.HTTPClientCfg(d.Cfg.Influx)

		if err := d.initHTTPClient("influx", cfg); err != nil {
			return err
		}
	}

	for name, cfg := range d.Cfg.HTTPClients {
		if err := d.initHTTPClient(name, cfg); err != nil {
			return err
		}
	}

	return nil
}

func (d *Daemon) initHTTPClient(name string, cfg dhttp.ClientCfg) error {
	if _, found := d.HTTPClients[name]; found {
		return fmt.Errorf("duplicate http client %q", name)
	}

	cfg.Log = d.Log.Child("http-client", log.Data{"client": name})

	client, err := dhttp.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("cannot create http client %q: %w", name, err)
	}

	d.HTTPClients[name] = client

	return nil
}

func (d *Daemon) initInflux() error {
	if d.Cfg.Influx == nil {
		return nil
	}

	cfg := *d.Cfg.Influx

	cfg.Log = d.Log.Child("influx", log.Data{})
	cfg.HTTPClient = d.HTTPClients["influx"]
	cfg.Hostname = d.Hostname

	client, err := influx.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("cannot create influx client: %w", err)
	}

	d.Influx = client

	return nil
}

func (d *Daemon) start() error {
	d.Log.Info("starting")

	for name, s := range d.HTTPServers {
		if err := s.Start(); err != nil {
			return fmt.Errorf("cannot start http server %q: %w", name, err)
		}
	}

	if d.Influx != nil {
		d.Influx.Start()
	}

	if err := d.service.Start(d); err != nil {
		return err
	}

	d.Log.Info("started")

	return nil
}

func (d *Daemon) wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case signo := <-sigChan:
		fmt.Println()
		d.Log.Info("received signal %d (%v)", signo, signo)

	case <-d.stopChan:
	}
}

func (d *Daemon) stop() {
	d.Log.Info("stopping")

	d.service.Stop(d)

	for _, s := range d.HTTPServers {
		s.Stop()
	}

	// Stopping the influx client flushes queued points, so it must happen
	// after servers have stopped accepting requests.
	if d.Influx != nil {
		d.Influx.Stop()
	}

	d.Log.Info("stopped")
}

func (d *Daemon) terminate() {
	d.service.Terminate(d)

	if d.Influx != nil {
		d.Influx.Terminate()
	}

	for _, c := range d.HTTPClients {
		c.Terminate()
	}

	for _, s := range d.HTTPServers {
		s.Terminate()
	}
}

// Shutdown makes a running daemon stop as if it had received a termination
// signal.
func (d *Daemon) Shutdown() {
	select {
	case d.stopChan <- struct{}{}:
	default:
	}
}

func Run(name, description string, service Service) {
	p := program.NewProgram(name, description)

	p.AddOption("c", "cfg-file", "path", "",
		"the path of the configuration file")

	p.ParseCommandLine()

	if p.IsOptionSet("cfg-file") {
		cfgPath := p.OptionValue("cfg-file")

		if err := LoadCfg(cfgPath, service.ServiceCfg()); err != nil {
			p.Fatal("cannot load configuration: %v", err)
		}
	}

	d, err := Start(name, service)
	if err != nil {
		p.Fatal("%v", err)
	}

	d.Wait()
}

// Start initializes and starts a daemon using the current configuration of
// the service. It does not load any configuration file.
func Start(name string, service Service) (*Daemon, error) {
	daemonCfg, err := service.DaemonCfg()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d := newDaemon(name, daemonCfg, service)

	if err := d.init(); err != nil {
		return nil, fmt.Errorf("cannot initialize daemon: %w", err)
	}

	if err := d.start(); err != nil {
		return nil, fmt.Errorf("cannot start daemon: %w", err)
	}

	return d, nil
}

// Wait blocks until the daemon receives a termination signal or Shutdown is
// called, then stops and terminates it.
func (d *Daemon) Wait() {
	d.wait()
	d.stop()
	d.terminate()
}
