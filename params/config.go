package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Ledger configures the connection to the settlement contract.
type Ledger struct {
	RPCURL          string
	ContractAddress string
	// PrivateKey is the hex key of the backend signer allowed to call
	// settleTrade.
	PrivateKey string
	ChainID    int64
}

// Venue configures the matching and balance behavior.
type Venue struct {
	// SweepInterval is the period of the matching sweep.
	SweepInterval time.Duration
	// BalanceMaxAge is the balance cache freshness window.
	BalanceMaxAge time.Duration
	// SettleTimeout bounds one on-chain settlement round-trip; expiry
	// is recorded as a settlement failure.
	SettleTimeout time.Duration
}

type Node struct {
	DBPath  string
	APIAddr string
	LogFile string
}

type Config struct {
	Ledger Ledger
	Venue  Venue
	Node   Node
}

func Default() Config {
	return Config{
		Ledger: Ledger{
			RPCURL:  "https://sepolia.infura.io/v3/your-project-id",
			ChainID: 11155111, // Sepolia
		},
		Venue: Venue{
			SweepInterval: 50 * time.Second,
			BalanceMaxAge: 5 * time.Minute,
			SettleTimeout: 2 * time.Minute,
		},
		Node: Node{
			DBPath:  "data/venue.db",
			APIAddr: ":8080",
			LogFile: "data/venue.log",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Ledger.RPCURL = v
	}
	if v := os.Getenv("CONTRACT_ADDRESS"); v != "" {
		cfg.Ledger.ContractAddress = v
	}
	if v := os.Getenv("BACKEND_PRIVATE_KEY"); v != "" {
		cfg.Ledger.PrivateKey = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ledger.ChainID = id
		}
	}

	if v := os.Getenv("SWEEP_INTERVAL_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			cfg.Venue.SweepInterval = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("BALANCE_MAX_AGE_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			cfg.Venue.BalanceMaxAge = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("SETTLE_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			cfg.Venue.SettleTimeout = time.Duration(sec) * time.Second
		}
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Node.DBPath = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}

	return cfg
}
