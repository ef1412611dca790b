package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"fsxadm": runFsxadm,
	}))
}

func runFsxadm() int {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("fsxadm: " + err.Error() + "\n")
		return 1
	}
	return 0
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
