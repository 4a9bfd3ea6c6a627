// Package config contains configuration of grader server and consumer.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/labstack/gommon/log"
)

// Config stores configuration for grader API and judge consumer.
type Config struct {
	// DB contains database connection config.
	DB DB `json:"db"`
	// Server contains API server config.
	Server *Server `json:"server,omitempty"`
	// Broker contains AMQP broker config.
	Broker *Broker `json:"broker,omitempty"`
	// Judge contains judge pipeline config.
	//
	// If Judge is nil, result consumer will not be started.
	Judge *Judge `json:"judge,omitempty"`
	// Redis contains config for status notifications.
	Redis *Redis `json:"redis,omitempty"`
	// LogLevel contains level of logging.
	//
	// You can use following values:
	//  * 1 - DEBUG
	//  * 2 - INFO (default)
	//  * 3 - WARN
	//  * 4 - ERROR
	//  * 5 - OFF
	LogLevel LogLevel `json:"log_level,omitempty"`
}

// Server contains server config.
type Server struct {
	// Host contains server host.
	Host string `json:"host"`
	// Port contains server port.
	Port int `json:"port"`
}

// Address returns string representation of server address.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Judge contains judge pipeline config.
type Judge struct {
	// ConsumerTag contains tag of result consumer.
	ConsumerTag string `json:"consumer_tag,omitempty"`
	// StaleAfter contains age after which judging submission
	// is reported by watchdog.
	StaleAfter Duration `json:"stale_after,omitempty"`
	// WatchdogInterval contains interval of watchdog checks.
	WatchdogInterval Duration `json:"watchdog_interval,omitempty"`
}

// Redis contains redis connection config.
type Redis struct {
	Addr     string `json:"addr"`
	Password Secret `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// LogLevel represents level of logger.
type LogLevel log.Lvl

func (l *LogLevel) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		var v log.Lvl
		if err := json.Unmarshal(bytes, &v); err != nil {
			return err
		}
		*l = LogLevel(v)
		return nil
	}
	switch strings.ToLower(s) {
	case "debug":
		*l = LogLevel(log.DEBUG)
	case "info":
		*l = LogLevel(log.INFO)
	case "warn":
		*l = LogLevel(log.WARN)
	case "error":
		*l = LogLevel(log.ERROR)
	case "off":
		*l = LogLevel(log.OFF)
	default:
		return fmt.Errorf("unsupported log level %q", s)
	}
	return nil
}

// Duration represents duration in config.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

var configFuncs = template.FuncMap{
	"json": func(value any) (string, error) {
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
	"file": func(name string) (string, error) {
		bytes, err := os.ReadFile(name)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(bytes), "\r\n"), nil
	},
	"env": func(name string) string {
		return os.Getenv(name)
	},
}

// LoadFromFile loads configuration from json file.
//
// Config file is a text/template, so values can be taken from
// files or environment variables using "file" and "env" functions.
func LoadFromFile(file string) (Config, error) {
	cfg := Config{
		// By default we should use INFO level.
		LogLevel: LogLevel(log.INFO),
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, err
	}
	tmpl, err := template.New("config").Funcs(configFuncs).Parse(string(data))
	if err != nil {
		return Config{}, err
	}
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, nil); err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(buffer.Bytes(), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
