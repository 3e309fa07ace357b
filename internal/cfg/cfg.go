package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

// Источники артефактов модели
const (
	ArtifactSourceFile  = "file"
	ArtifactSourceMinio = "minio"
)

type Config struct {
	Http      *HTTPConfig
	Artifacts *ArtifactsCfg
	TextGen   *TextGenCfg
	Db        *PGDBCfg     // nil, если история сравнений отключена
	Redis     *RedisCfg    // nil, если кэш отключён
	Minio     *MinIOCfg    // nil, если артефакты читаются с диска
	Qdrant    *QdrantCfg   // nil, если поиск похожих продуктов отключён
	Kafka     *KafkaCfg    // nil, если публикация событий отключена
	Shutdown  time.Duration
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
}

type ArtifactsCfg struct {
	Source      string // file | minio
	ScalerPath  string // путь к файлу или ключ объекта в MinIO
	ModelPath   string
	LoadRetries int
	LoadTimeout time.Duration
}

type TextGenCfg struct {
	Seed uint64 // 0: случайный seed
}

type KafkaCfg struct {
	Topic                   string
	Brokers                 []string
	NetworkMode             string
	Partitions              int
	ReplicationFactor       int
	OutboxBatchSize         int
	OutboxMaxAttempts       int           // после стольких неудачных отправок событие помечается failed
	OutboxPoll              time.Duration // период опроса outbox помимо LISTEN/NOTIFY
	OutboxProcessingTimeout time.Duration // событие в processing дольше этого считается зависшим
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет с артефактами модели
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsURL string
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Addr          string
	Password      string
	User          string
	DB            int
	MaxRetries    int
	DialTimeout   time.Duration
	Timeout       time.Duration
	ComparisonTTL time.Duration
}

// DSN возвращает строку подключения к PostgreSQL.
func (c *PGDBCfg) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Load загружает конфигурацию из окружения (и .env, если файл есть).
// Опциональные бэкенды включаются, только если задан их адрес.
func Load(log logger.Logger) (*Config, error) {
	if err := loadDotEnv(getEnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	artifacts, err := loadArtifactsCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	textGen, err := loadTextGenCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if artifacts.Source == ArtifactSourceMinio && minio == nil {
		return nil, e.Wrap("ARTIFACT_SOURCE=minio requires MINIO_ENDPOINT", e.ErrIncorrectEnvVariable)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	shutdown, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		log.Errorf(err, "invalid SHUTDOWN_TIMEOUT")
		return nil, err
	}

	return &Config{
		Http:      http,
		Artifacts: artifacts,
		TextGen:   textGen,
		Db:        db,
		Redis:     redis,
		Minio:     minio,
		Qdrant:    qdrant,
		Kafka:     kafka,
		Shutdown:  shutdown,
	}, nil
}

// loadDotEnv подгружает переменные из файла, не перезаписывая уже заданные. Отсутствие файла не ошибка.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort           = "8080"
		defaultReadTimeout    = 5 * time.Second
		defaultWriteTimeout   = 10 * time.Second
		defaultIdleTimeout    = 60 * time.Second
		defaultMaxRequestSize = 1 << 20
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	maxRequestSize, err := parseIntEnv("HTTP_MAX_REQUEST_SIZE", defaultMaxRequestSize)
	if err != nil {
		log.Errorf(err, "invalid HTTP_MAX_REQUEST_SIZE")
		return nil, err
	}

	return &HTTPConfig{
		Port:           getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxRequestSize: int64(maxRequestSize),
	}, nil
}

func loadArtifactsCfg(log logger.Logger) (*ArtifactsCfg, error) {
	const (
		defaultSource      = ArtifactSourceFile
		defaultScalerPath  = "artifacts/scaler.json"
		defaultModelPath   = "artifacts/food_rating_model.json"
		defaultLoadRetries = 3
		defaultLoadTimeout = 30 * time.Second
	)

	source := strings.ToLower(getEnvOrDefault("ARTIFACT_SOURCE", defaultSource))
	if source != ArtifactSourceFile && source != ArtifactSourceMinio {
		err := e.Wrap("ARTIFACT_SOURCE="+source, e.ErrArtifactSource)
		log.Errorf(err, "invalid ARTIFACT_SOURCE")
		return nil, err
	}

	retries, err := parseIntEnv("ARTIFACT_LOAD_RETRIES", defaultLoadRetries)
	if err != nil {
		log.Errorf(err, "invalid ARTIFACT_LOAD_RETRIES")
		return nil, err
	}

	timeout, err := parseDurationEnv("ARTIFACT_LOAD_TIMEOUT", defaultLoadTimeout)
	if err != nil {
		log.Errorf(err, "invalid ARTIFACT_LOAD_TIMEOUT")
		return nil, err
	}

	return &ArtifactsCfg{
		Source:      source,
		ScalerPath:  getEnvOrDefault("SCALER_PATH", defaultScalerPath),
		ModelPath:   getEnvOrDefault("MODEL_PATH", defaultModelPath),
		LoadRetries: max(retries, 1),
		LoadTimeout: timeout,
	}, nil
}

func loadTextGenCfg() (*TextGenCfg, error) {
	v := getEnv("TEXTGEN_SEED")
	if v == "" {
		return &TextGenCfg{}, nil
	}

	seed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, e.Wrap("TEXTGEN_SEED", e.ErrIncorrectEnvVariable)
	}

	return &TextGenCfg{Seed: seed}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultTopic             = "rating.compared"
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultOutboxBatchSize   = 10
		defaultOutboxMaxAttempts = 5
		defaultOutboxPoll        = 15 * time.Second
		defaultOutboxProcessing  = 5 * time.Minute
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, nil
	}

	brokers := make([]string, 0)
	for _, b := range strings.Split(brokerStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, e.Wrap("KAFKA_BROKERS", e.ErrIncorrectEnvVariable)
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultOutboxBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	maxAttempts, err := parseIntEnv("OUTBOX_MAX_ATTEMPTS", defaultOutboxMaxAttempts)
	if err != nil {
		return nil, e.Wrap("OUTBOX_MAX_ATTEMPTS", err)
	}

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", defaultOutboxPoll)
	if err != nil {
		return nil, e.Wrap("OUTBOX_POLL_INTERVAL", err)
	}

	processingTimeout, err := parseDurationEnv("OUTBOX_PROCESSING_TIMEOUT", defaultOutboxProcessing)
	if err != nil {
		return nil, e.Wrap("OUTBOX_PROCESSING_TIMEOUT", err)
	}

	return &KafkaCfg{
		Brokers:                 brokers,
		Topic:                   getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:              partitions,
		ReplicationFactor:       replicationFactor,
		NetworkMode:             getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		OutboxBatchSize:         max(batchSize, 1),
		OutboxMaxAttempts:       max(maxAttempts, 1),
		OutboxPoll:              poll,
		OutboxProcessingTimeout: processingTimeout,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL = false
		defaultBucket = "models"
	)

	endpoint := getEnv("MINIO_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost          = "localhost"
		defaultPort          = "5432"
		defaultSSLMode       = "disable"
		defaultMigrationsURL = "file://db/migrations"
	)

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		return nil, nil
	}

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MigrationsURL: getEnvOrDefault("MIGRATIONS_URL", defaultMigrationsURL),
	}, nil
}

func loadQdrantCfg(log logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultCollection     = "rated_products"
		featureVectorSize     = 11
	)

	host := getEnv("QDRANT_HOST")
	if host == "" {
		return nil, nil
	}

	port, err := strconv.Atoi(getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort))
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 host,
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           featureVectorSize,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB            = 0
		defaultMaxRetries    = 3
		defaultDialTimeout   = 5 * time.Second
		defaultReadTimeout   = 3 * time.Second
		defaultWriteTimeout  = 3 * time.Second
		defaultComparisonTTL = 10 * time.Minute
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	ttl, err := parseDurationEnv("COMPARISON_TTL", defaultComparisonTTL)
	if err != nil {
		log.Errorf(err, "invalid COMPARISON_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:          addr,
		Password:      getEnv("REDIS_PASSWORD"),
		User:          getEnv("REDIS_USER"),
		DB:            db,
		MaxRetries:    maxRetries,
		DialTimeout:   dialTimeout,
		Timeout:       max(readTimeout, writeTimeout),
		ComparisonTTL: ttl,
	}, nil
}

// getEnv возвращает значение переменной окружения или пустую строку.
func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := getEnv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := getEnv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := getEnv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
