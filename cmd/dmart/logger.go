package main

import (
	"io"

	"github.com/op/go-logging"
)

const logFormat = `%{time:2006-01-02 15:04:05} %{level:.5s} %{module} %{message}`

// InitLogger sends go-logging output to w at the given level. An unknown
// level is an error and leaves the previous backend in place.
func InitLogger(w io.Writer, logLevel string) error {
	level, err := logging.LogLevel(logLevel)
	if err != nil {
		return err
	}
	baseBackend := logging.NewLogBackend(w, "", 0)
	backendFormatter := logging.NewBackendFormatter(baseBackend, logging.MustStringFormatter(logFormat))

	backendLeveled := logging.AddModuleLevel(backendFormatter)
	backendLeveled.SetLevel(level, "")

	logging.SetBackend(backendLeveled)
	return nil
}
