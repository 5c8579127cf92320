package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.UserConfigFile)
	}
	fmt.Printf("Writing configuration to %s\n", path)
	if err := config.Init(filesystem(g), path, i.Force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Println("initialized successfully")
	return nil
}
