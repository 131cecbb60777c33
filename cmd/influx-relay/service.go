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

package main

import (
	"context"

	"github.com/exograd/go-influx/daemon"
	"github.com/exograd/go-influx/dhttp"
	"github.com/exograd/go-influx/influx"
	"github.com/exograd/go-log"
)

type ServiceCfg struct {
	Logger     *log.LoggerCfg   `json:"logger"`
	HTTPServer dhttp.ServerCfg  `json:"http_server"`
	Influx     influx.ClientCfg `json:"influx"`
}

type Service struct {
	Cfg ServiceCfg

	Daemon *daemon.Daemon
	Log    *log.Logger

	Influx *influx.Client
	Server *dhttp.Server
}

func NewService() *Service {
	return &Service{}
}

func (s *Service) ServiceCfg() interface{} {
	return &s.Cfg
}

func (s *Service) DaemonCfg() (daemon.DaemonCfg, error) {
	cfg := daemon.NewDaemonCfg()

	cfg.Logger = s.Cfg.Logger
	cfg.AddHTTPServer("api", s.Cfg.HTTPServer)
	cfg.Influx = &s.Cfg.Influx

	return cfg, nil
}

func (s *Service) Init(d *daemon.Daemon) error {
	s.Daemon = d
	s.Log = d.Log

	s.Influx = d.Influx
	s.Server = d.HTTPServers["api"]

	s.initRoutes()

	return nil
}

func (s *Service) Start(d *daemon.Daemon) error {
	version, err := s.Influx.Version(context.Background())
	if err != nil {
		s.Log.Error("cannot reach influxdb: %v", err)
		return nil
	}

	s.Log.Info("using influxdb %s", version)

	return nil
}

func (s *Service) Stop(d *daemon.Daemon) {
}

func (s *Service) Terminate(d *daemon.Daemon) {
}
