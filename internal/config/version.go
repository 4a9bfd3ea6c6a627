package config

// Version contains version of grader.
//
// Value of this variable will be replaced at build time using:
//
//	go build -ldflags "-X github.com/udovin/grader/internal/config.Version=..."
var Version = "development"
