package main

import (
	"flag"
	"log"

	"github.com/BurntSushi/toml"

	"github.com/vizdbg/bridge/internal/config"
)

func main() {
	output := flag.String("output", "bridge.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "bridge.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		var cfg config.BridgeConfig
		if _, err := toml.DecodeFile(*input, &cfg); err != nil {
			log.Fatal(err)
		}
		if err := config.ValidateBridgeConfig(cfg); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated bridge config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote bridge config template to %s", *output)
}
