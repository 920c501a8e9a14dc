package config

import (
	"database/sql"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	"praxis-recording/constant"
	"strings"
	"time"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	Auth        Auth          `yaml:"auth"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *Queue        `yaml:"queue"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Recording   Recording     `yaml:"recording"`
	Log         Log           `yaml:"log"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type Server struct {
	HttpPort    string   `yaml:"http_port"`
	CorsOrigins []string `yaml:"cors_origins"`
}

type Queue struct {
	Driver   constant.QueueDriver `yaml:"driver"`
	RabbitMQ *RabbitMQ            `yaml:"rabbitmq"`
	SQS      *SQS                 `yaml:"sqs"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
	FIFO         bool   `json:"fifo"`
}

type SQS struct {
	Region   string `json:"region"`
	QueueURL string `json:"queue_url"`
	Endpoint string `json:"endpoint"`
}

type Recording struct {
	MaxChunkBytes       int64         `yaml:"max_chunk_bytes"`
	HeartbeatStaleAfter time.Duration `yaml:"heartbeat_stale_after"`
	ReaperInterval      time.Duration `yaml:"reaper_interval"`
	DefaultLocale       string        `yaml:"default_locale"`
}

type Log struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func setDefaults() {
	viper.SetDefault("app.environment", constant.EnvironmentDevelop.String())
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("queue.driver", string(constant.QueueDriverRabbitMQ))
	viper.SetDefault("rabbitmq_kind", "topic")
	viper.SetDefault("rabbitmq_exchange", "transcription_exchange")
	viper.SetDefault("minio.url", "localhost:9000")
	viper.SetDefault("minio.bucket", constant.RecordingsBucket)
	viper.SetDefault("recording.max_chunk_bytes", 5*1024*1024)
	viper.SetDefault("recording.heartbeat_stale_after", 10*time.Minute)
	viper.SetDefault("recording.reaper_interval", time.Minute)
	viper.SetDefault("recording.default_locale", "en")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	queue := &Queue{
		Driver: constant.QueueDriver(viper.GetString("queue.driver")),
		RabbitMQ: &RabbitMQ{
			Host:         viper.GetString("rabbitmq_host"),
			Port:         viper.GetInt("rabbitmq_port"),
			User:         viper.GetString("rabbitmq_user"),
			Pass:         viper.GetString("rabbitmq_pass"),
			ExchangeName: viper.GetString("rabbitmq_exchange"),
			Kind:         viper.GetString("rabbitmq_kind"),
			FIFO:         viper.GetBool("rabbitmq_fifo"),
		},
		SQS: &SQS{
			Region:   viper.GetString("sqs.region"),
			QueueURL: viper.GetString("sqs.queue_url"),
			Endpoint: viper.GetString("sqs.endpoint"),
		},
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: viper.GetBool("minio.secure"),
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Auth: Auth{
			JWTSecret: viper.GetString("auth.jwt_secret"),
			Issuer:    viper.GetString("auth.issuer"),
		},
		Server: Server{
			HttpPort:    viper.GetString("server.port"),
			CorsOrigins: viper.GetStringSlice("server.cors_origins"),
		},
		Recording: Recording{
			MaxChunkBytes:       viper.GetInt64("recording.max_chunk_bytes"),
			HeartbeatStaleAfter: viper.GetDuration("recording.heartbeat_stale_after"),
			ReaperInterval:      viper.GetDuration("recording.reaper_interval"),
			DefaultLocale:       viper.GetString("recording.default_locale"),
		},
		Log: Log{
			File:       viper.GetString("log.file"),
			MaxSizeMB:  viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
		},
		DB:      db,
		Queue:   queue,
		Storage: minioClient,
	}, nil
}
