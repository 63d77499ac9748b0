package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config reúne toda a configuração do serviço, carregada do ambiente
// com o prefixo IMOBI_.
type Config struct {
	Port string `mapstructure:"port"`

	// RailMode escolhe os trilhos de pagamento externos: "mock" usa o
	// ledger em memória, "solana" conecta à rede.
	RailMode string `mapstructure:"rail_mode"`

	SolanaRPCURL      string            `mapstructure:"solana_rpc_url"`
	SolanaFeePayer    string            `mapstructure:"solana_fee_payer"`
	SolanaCustodyKeys map[string]string `mapstructure:"solana_custody_keys"`
}

// LoadConfig lê a configuração do ambiente, com padrões de
// desenvolvimento.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMOBI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("rail_mode", "mock")
	v.SetDefault("solana_rpc_url", "https://api.devnet.solana.com")

	// Permite carregar chaves de custódia de um arquivo local opcional.
	v.SetConfigName("imobi")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("falha ao ler arquivo de configuração: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("falha ao decodificar configuração: %w", err)
	}

	if cfg.RailMode != "mock" && cfg.RailMode != "solana" {
		return Config{}, fmt.Errorf("rail_mode inválido: %s (esperado mock ou solana)", cfg.RailMode)
	}
	if cfg.RailMode == "solana" && cfg.SolanaFeePayer == "" {
		return Config{}, fmt.Errorf("rail_mode solana exige IMOBI_SOLANA_FEE_PAYER")
	}
	return cfg, nil
}
