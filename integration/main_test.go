//go:build integration

package integration_test

import (
	"log"
	"os"
	"os/exec"
	"testing"
)

const binary = "session-client"

var validConfig string

func init() {
	// read config file
	dat, err := os.ReadFile("../config.yaml")
	if err != nil {
		panic(err)
	}
	validConfig = string(dat)
}

func buildCommandAndRunTests(m *testing.M, name string) int {
	cmd := exec.Command("go", "build", "-buildvcs=false", "-race", "-cover", "-o", name, "../cmd/"+name)
	if output, err := cmd.CombinedOutput(); err != nil {
		log.Printf("output: %s", output)
		log.Fatalf("error: %v", err)
	}
	defer os.Remove(name)

	return m.Run()
}

func TestMain(m *testing.M) {
	code := buildCommandAndRunTests(m, binary)
	os.Exit(code)
}
