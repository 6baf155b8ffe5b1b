// Package config loads the service configuration from an optional TOML file
// plus environment variables with the VC_ prefix. A local .env file is
// honored for development.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yonathanavila/verified-chain-bk/internal/log"
)

// Configuration holds the project configuration
type Configuration struct {
	ServerPort int      `mapstructure:"ServerPort"`
	Log        Log      `mapstructure:"Log"`
	Ethereum   Ethereum `mapstructure:"Ethereum"`
	Contract   Contract `mapstructure:"Contract"`
	Prover     Prover   `mapstructure:"Prover"`
	KeyStore   KeyStore `mapstructure:"KeyStore"`
}

// Ethereum holds the chain node connection and transaction settings
type Ethereum struct {
	URL                  string        `mapstructure:"Url" tip:"Chain node RPC url"`
	DefaultGasLimit      int           `mapstructure:"DefaultGasLimit" tip:"Default gas limit"`
	MinGasPrice          int64         `mapstructure:"MinGasPrice" tip:"Minimum gas price in wei"`
	MaxGasPrice          int64         `mapstructure:"MaxGasPrice" tip:"Maximum gas price in wei"`
	ReceiptTimeout       time.Duration `mapstructure:"ReceiptTimeout" tip:"Receipt timeout"`
	RPCResponseTimeout   time.Duration `mapstructure:"RPCResponseTimeout" tip:"RPC response timeout"`
	WaitReceiptCycleTime time.Duration `mapstructure:"WaitReceiptCycleTime" tip:"Receipt poll interval"`
}

// Contract points at the deployed proof registry
type Contract struct {
	ABIPath string `mapstructure:"AbiPath" tip:"Path to the registry ABI JSON"`
	Address string `mapstructure:"Address" tip:"Deployed registry address"`
}

// Prover holds the external prover CLI settings
type Prover struct {
	BinaryPath    string        `mapstructure:"BinaryPath" tip:"Prover executable"`
	SecurityParam int           `mapstructure:"SecurityParam" tip:"Circuit size parameter (-K)"`
	BitWidth      int           `mapstructure:"BitWidth" tip:"Fixed point bit width (--bits)"`
	InputPath     string        `mapstructure:"InputPath" tip:"Input data file"`
	ModelPath     string        `mapstructure:"ModelPath" tip:"Computational graph file"`
	WorkDir       string        `mapstructure:"WorkDir" tip:"Parent dir for request workdirs"`
	Timeout       time.Duration `mapstructure:"Timeout" tip:"Wall-clock budget per proof"`
}

// KeyStore holds the submission account material. Environment only, never a
// config file, and never logged.
type KeyStore struct {
	PrivateKey string `mapstructure:"PrivateKey" tip:"Hex encoded submission key"`
}

// Log holds runtime log settings
//
// Level: minimum level to log (-4: Debug, 0: Info, 4: Warning, 8: Error)
// Mode: output format (1: JSON, 2: Text)
type Log struct {
	Level int `mapstructure:"Level"`
	Mode  int `mapstructure:"Mode"`
}

// Load loads the configuration. fileName overrides the default config file
// base name; an empty string means "config" (config.toml).
func Load(fileName string) (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.AddConfigPath(".")
	v.SetConfigType("toml")
	if fileName == "" {
		v.SetConfigName("config")
	} else {
		v.SetConfigName(fileName)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Configuration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ServerPort", 3001)
	v.SetDefault("Log.Level", log.LevelDebug)
	v.SetDefault("Log.Mode", log.OutputText)

	v.SetDefault("Ethereum.Url", "")
	v.SetDefault("Ethereum.DefaultGasLimit", 600000)
	v.SetDefault("Ethereum.MinGasPrice", 0)
	v.SetDefault("Ethereum.MaxGasPrice", 1000000)
	v.SetDefault("Ethereum.ReceiptTimeout", 600*time.Second)
	v.SetDefault("Ethereum.RPCResponseTimeout", 5*time.Second)
	v.SetDefault("Ethereum.WaitReceiptCycleTime", 30*time.Second)

	v.SetDefault("Contract.AbiPath", "")
	v.SetDefault("Contract.Address", "")

	v.SetDefault("Prover.BinaryPath", "ezkl")
	v.SetDefault("Prover.SecurityParam", 17)
	v.SetDefault("Prover.BitWidth", 16)
	v.SetDefault("Prover.InputPath", "")
	v.SetDefault("Prover.ModelPath", "")
	v.SetDefault("Prover.WorkDir", "")
	v.SetDefault("Prover.Timeout", 5*time.Minute)

	v.SetDefault("KeyStore.PrivateKey", "")
}

func (c *Configuration) validate() error {
	var errs []error
	if c.Ethereum.URL == "" {
		errs = append(errs, errors.New("VC_ETHEREUM_URL is required"))
	}
	if c.Contract.ABIPath == "" {
		errs = append(errs, errors.New("VC_CONTRACT_ABIPATH is required"))
	}
	if !common.IsHexAddress(c.Contract.Address) {
		errs = append(errs, fmt.Errorf("VC_CONTRACT_ADDRESS %q is not a valid address", c.Contract.Address))
	}
	if c.KeyStore.PrivateKey == "" {
		errs = append(errs, errors.New("VC_KEYSTORE_PRIVATEKEY is required"))
	}
	if c.Prover.InputPath == "" {
		errs = append(errs, errors.New("VC_PROVER_INPUTPATH is required"))
	}
	if c.Prover.ModelPath == "" {
		errs = append(errs, errors.New("VC_PROVER_MODELPATH is required"))
	}
	return errors.Join(errs...)
}
