package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultSQLitePath is the database file used by the sqlite storage driver.
const DefaultSQLitePath = "./data/ipubot.db"

// DefaultFileStorePath is the JSONL file used by the file storage driver.
const DefaultFileStorePath = "./data/ipubot.jsonl"
