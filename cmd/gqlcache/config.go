package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         int         `yaml:"port"`
	Origin       string      `yaml:"origin"`
	Addr         string      `yaml:"addr"`
	Host         string      `yaml:"host"`
	TTL          int         `yaml:"ttl"`
	BypassHeader string      `yaml:"bypassHeader"`
	Store        StoreConfig `yaml:"store"`
}

type StoreConfig struct {
	Provider string `yaml:"provider"`
	File     string `yaml:"file"`
	Redis    string `yaml:"redis"`
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
