package models

import (
	"fmt"
)

// Language represents programming language of submission.
type Language string

const (
	C       Language = "C"
	Cpp     Language = "Cpp"
	Java    Language = "Java"
	Python3 Language = "Python3"
	PyPy3   Language = "PyPy3"
	Golang  Language = "Golang"
)

type languageLimits struct {
	timeFactor   int64
	timeBonus    int64
	memoryFactor int64
	memoryBonus  int64
}

// Time limits are in milliseconds, memory limits are in megabytes.
var languages = map[Language]languageLimits{
	C:       {timeFactor: 1, memoryFactor: 1},
	Cpp:     {timeFactor: 1, memoryFactor: 1},
	Golang:  {timeFactor: 1, memoryFactor: 1},
	Java:    {timeFactor: 2, timeBonus: 1000, memoryFactor: 2, memoryBonus: 16},
	Python3: {timeFactor: 3, timeBonus: 2000, memoryFactor: 2, memoryBonus: 32},
	PyPy3:   {timeFactor: 2, timeBonus: 2000, memoryFactor: 2, memoryBonus: 128},
}

// Languages returns all supported languages.
func Languages() []Language {
	return []Language{C, Cpp, Golang, Java, Python3, PyPy3}
}

// Valid returns error if language is not supported.
func (l Language) Valid() error {
	if _, ok := languages[l]; !ok {
		return fmt.Errorf("unsupported language %q", string(l))
	}
	return nil
}

// TimeLimit returns time limit in milliseconds for problem
// time limit in milliseconds.
func (l Language) TimeLimit(base int64) int64 {
	limits, ok := languages[l]
	if !ok {
		return base
	}
	return base*limits.timeFactor + limits.timeBonus
}

// MemoryLimit returns memory limit in kilobytes for problem
// memory limit in megabytes.
func (l Language) MemoryLimit(base int64) int64 {
	limits, ok := languages[l]
	if !ok {
		return base * 1024
	}
	return (base*limits.memoryFactor + limits.memoryBonus) * 1024
}
