package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           string
	OpenAIApiKey   string
	OpenAIModel    string
	SerpApiKey     string
	UseMongoDB     bool
	MongoURI       string
	MongoDBName    string
	UseDynamoDB    bool
	AWSRegion      string
	SessionsTable  string
	SearchTable    string
	ResearchTable  string
	DataDir        string
	LLMTimeoutSecs int
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8000"),
		OpenAIApiKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o"),
		SerpApiKey:     getEnv("SERPAPI_KEY", ""),
		UseMongoDB:     getEnvAsBool("USE_MONGODB", true),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "aria_db"),
		UseDynamoDB:    getEnvAsBool("USE_DYNAMODB", false),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		SessionsTable:  getEnv("DDB_SESSIONS_TABLE", "sessions"),
		SearchTable:    getEnv("DDB_SEARCH_HISTORY_TABLE", "search_history"),
		ResearchTable:  getEnv("DDB_SAVED_RESEARCH_TABLE", "saved_research"),
		DataDir:        getEnv("DATA_DIR", "data"),
		LLMTimeoutSecs: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
