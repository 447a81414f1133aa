package config

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogZapMode               string        `mapstructure:"LOG_ZAP_MODE"`
	PrintConfigurationToLogs string        `mapstructure:"PRINT_CONFIGURATION_TO_LOGS"`
	EthereumNodeUrl          string        `mapstructure:"ETHEREUM_NODE_URL"`
	ChainNodeUrls            string        `mapstructure:"CHAIN_NODE_URLS"`
	MatureBlockAge           uint64        `mapstructure:"MATURE_BLOCK_AGE"`
	BlockRange               uint64        `mapstructure:"BLOCK_RANGE"`
	EventReceiptParallelism  int           `mapstructure:"EVENT_RECEIPT_PARALLELISM"`
	QueryMaxRetries          int           `mapstructure:"QUERY_MAX_RETRIES"`
	ReceiptMaxRetries        int           `mapstructure:"RECEIPT_MAX_RETRIES"`
	ClusterWorkerUrls        string        `mapstructure:"CLUSTER_WORKER_URLS"`
	MetricsFlushInterval     time.Duration `mapstructure:"METRICS_FLUSH_INTERVAL"`
	SqlitePath               string        `mapstructure:"SQLITE_PATH"`
	BadgerPath               string        `mapstructure:"BADGER_PATH"`
	RPCPort                  int           `mapstructure:"RPC_PORT"`
	WorkerPort               int           `mapstructure:"WORKER_PORT"`
}

var defaults = map[string]any{
	"MATURE_BLOCK_AGE":          250,
	"BLOCK_RANGE":               250,
	"EVENT_RECEIPT_PARALLELISM": 2,
	"QUERY_MAX_RETRIES":         3,
	"RECEIPT_MAX_RETRIES":       3,
	"METRICS_FLUSH_INTERVAL":    "10s",
	"SQLITE_PATH":               "./db/sqlite/sales",
	"BADGER_PATH":               "./db/badger/receipts",
	"RPC_PORT":                  8080,
	"WORKER_PORT":               8090,
}

var lock = &sync.Mutex{}
var config *Config

var Get = get

func get() Config {
	if config == nil {
		lock.Lock()
		defer lock.Unlock()
		if config == nil {
			c := loadConfig()
			config = &c
		}
	}
	return *config
}

// ChainUrls resolves the RPC endpoint per chain. ETHEREUM_NODE_URL always
// serves "ethereum"; CHAIN_NODE_URLS adds others as chain=url pairs.
func (c Config) ChainUrls() map[string]string {
	urls := make(map[string]string)
	if c.EthereumNodeUrl != "" {
		urls["ethereum"] = c.EthereumNodeUrl
	}
	for _, pair := range splitList(c.ChainNodeUrls) {
		chain, url, ok := strings.Cut(pair, "=")
		if !ok || chain == "" || url == "" {
			continue
		}
		urls[strings.ToLower(strings.TrimSpace(chain))] = strings.TrimSpace(url)
	}
	return urls
}

func (c Config) WorkerUrls() []string {
	return splitList(c.ClusterWorkerUrls)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadConfig() Config {
	viperAddConfigFile()
	viperAddDefaults()
	viperAddEnv()
	cfg := initializeCfg()
	debugConfig(cfg)
	return cfg
}

func viperAddConfigFile() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("env")
}

func viperAddDefaults() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

func viperAddEnv() {
	viper.AutomaticEnv()
	// This makes sure that all envs are binded even if they are not represented in config file (https://github.com/spf13/viper/issues/584)
	valueOfConfig := reflect.ValueOf(&Config{}).Elem()
	fieldsOfConfig := reflect.TypeOf(&Config{}).Elem()
	for i := 0; i < valueOfConfig.NumField(); i++ {
		field, _ := fieldsOfConfig.FieldByName(valueOfConfig.Type().Field(i).Name)
		mapStructureVal := field.Tag.Get("mapstructure")
		err := viper.BindEnv(mapStructureVal)
		if err != nil {
			panic(fmt.Sprintf("Error binding env val '%v': %v", mapStructureVal, err))
		}
	}
}

func initializeCfg() Config {
	var cfg Config
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("fatal error reading config file: %v", err))
		}
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		panic(fmt.Sprintf("error unmarshaling config: %v", err))
	}
	return cfg
}

func debugConfig(cfg Config) {
	if cfg.PrintConfigurationToLogs == "true" {
		b, err := json.Marshal(cfg)
		var result string
		if err != nil {
			result = "[FAILED TO CONVERT CONF TO STRING]"
		} else {
			result = string(b)
		}
		log.Printf("[APP CONFIGURATION]: %v\n", result)
	}
}
