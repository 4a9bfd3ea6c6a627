package config

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDBUnmarshalSQLite(t *testing.T) {
	expectedConfig := DB{
		Options: SQLiteOptions{Path: "test.db"},
	}
	data, err := json.Marshal(expectedConfig)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	var config DB
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatal("Error: ", err)
	}
	if !reflect.DeepEqual(expectedConfig, config) {
		t.Fatal("Configs are not equal")
	}
}

func TestDBUnmarshalPostgres(t *testing.T) {
	expectedConfig := DB{
		Options: PostgresOptions{
			Hosts:    []string{"localhost:5432"},
			User:     "user",
			Password: "password",
			Name:     "database",
			SSLMode:  "disable",
		},
	}
	data, err := json.Marshal(expectedConfig)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	var config DB
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatal("Error: ", err)
	}
	if !reflect.DeepEqual(expectedConfig, config) {
		t.Fatal("Configs are not equal")
	}
}

func TestDBUnmarshalUnsupported(t *testing.T) {
	var config DB
	if err := json.Unmarshal(
		[]byte(`{"driver":"mysql","options":{}}`), &config,
	); err == nil {
		t.Fatal("Expected error")
	}
}

func TestDBCreateSQLite(t *testing.T) {
	config := DB{Options: SQLiteOptions{Path: ":memory:"}}
	conn, err := config.Create()
	if err != nil {
		t.Fatal("Error: ", err)
	}
	defer func() { _ = conn.Close() }()
	if err := conn.Ping(); err != nil {
		t.Fatal("Error: ", err)
	}
}

func TestDBCreateUnsupported(t *testing.T) {
	if _, err := (DB{}).Create(); err == nil {
		t.Fatal("Expected error")
	}
}
