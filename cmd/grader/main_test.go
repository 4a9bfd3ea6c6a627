package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/core"
)

var testConfigFile *os.File

func testSetup(tb testing.TB, cfg config.Config) {
	var err error
	testConfigFile, err = os.CreateTemp(tb.TempDir(), "test-")
	if err != nil {
		tb.Fatal("Error:", err)
	}
	defer testConfigFile.Close()
	if err := json.NewEncoder(testConfigFile).Encode(cfg); err != nil {
		tb.Fatal("Error:", err)
	}
}

func newTestCommand() *cobra.Command {
	cmd := cobra.Command{}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Bool("force", false, "")
	_ = cmd.Flags().Set("config", testConfigFile.Name())
	return &cmd
}

func TestMigrateMain(t *testing.T) {
	cfg := config.Config{
		DB: config.DB{Options: config.SQLiteOptions{
			Path: filepath.Join(t.TempDir(), "grader.db"),
		}},
	}
	testSetup(t, cfg)
	migrateMain(newTestCommand(), nil)
	c, err := core.NewCore(cfg)
	if err != nil {
		t.Fatal("Error:", err)
	}
	defer func() { _ = c.DB.Close() }()
	c.SetupAllStores()
	if _, err := c.Submissions.All(context.Background()); err != nil {
		t.Fatal("Error:", err)
	}
	cmd := newTestCommand()
	_ = cmd.Flags().Set("force", "true")
	migrateMain(cmd, []string{"zero"})
	if _, err := c.Submissions.All(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
}

func TestMigrateMain_Dangerous(t *testing.T) {
	testSetup(t, config.Config{
		DB: config.DB{Options: config.SQLiteOptions{Path: ":memory:"}},
	})
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Expected panic")
		}
	}()
	migrateMain(newTestCommand(), []string{"zero"})
}

func TestServerMain_NoSections(t *testing.T) {
	testSetup(t, config.Config{
		DB: config.DB{Options: config.SQLiteOptions{Path: ":memory:"}},
	})
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Expected panic")
		}
	}()
	serverMain(newTestCommand(), nil)
}

func TestServerMain_NoBroker(t *testing.T) {
	testSetup(t, config.Config{
		DB:     config.DB{Options: config.SQLiteOptions{Path: ":memory:"}},
		Server: &config.Server{},
	})
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Expected panic")
		}
	}()
	serverMain(newTestCommand(), nil)
}

func TestLoadEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(file, []byte("GRADER_TEST_VALUE=qwerty123\n"), 0644); err != nil {
		t.Fatal("Error:", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("GRADER_TEST_VALUE") })
	if err := loadEnv(filepath.Join(t.TempDir(), "missing.env"), file); err != nil {
		t.Fatal("Error:", err)
	}
	if value := os.Getenv("GRADER_TEST_VALUE"); value != "qwerty123" {
		t.Fatalf("Expected %q, got %q", "qwerty123", value)
	}
}

func TestVersionMain(t *testing.T) {
	cmd := cobra.Command{}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Unexpected panic: %v", r)
		}
	}()
	versionMain(&cmd, nil)
}

func TestGetConfigUnknown(t *testing.T) {
	cmd := cobra.Command{}
	if _, err := getConfig(&cmd); err == nil {
		t.Fatal("Expected error")
	}
}

func TestCommand(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Expected panic")
		}
	}()
	args := os.Args
	defer func() { os.Args = args }()
	os.Args = []string{"grader", "--config", "not-found", "server"}
	main()
}
