package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/lcox74/attasm"
)

// runBuild assembles one source file into a relocatable object.
func runBuild(file, output string) error {
	builder, err := attasm.AssembleFile(file, attasm.SyntaxATT)
	if err != nil {
		return err
	}
	if err := builder.WriteFile(output); err != nil {
		return err
	}
	log.WithFields(log.Fields{"input": file, "output": output}).Info("assembled")
	return nil
}
