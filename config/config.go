package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Worker      Worker        `yaml:"worker"`
	Gemini      Gemini        `yaml:"gemini"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

// Worker locates the generation scripts and bounds a single invocation.
type Worker struct {
	Python      string        `yaml:"python"`
	ImageScript string        `yaml:"image_script"`
	VideoScript string        `yaml:"video_script"`
	StoryScript string        `yaml:"story_script"`
	Timeout     time.Duration `yaml:"timeout"`
	UploadDir   string        `yaml:"upload_dir"`
}

type Gemini struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type RabbitMQ struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	QueueName    string `json:"queue_name"`
	RoutingKey   string `json:"routing_key"`
	Kind         string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.workers", 4)
	viper.SetDefault("worker.timeout", "10m")
	viper.SetDefault("worker.upload_dir", "storage/uploads")
	viper.SetDefault("rabbitmq_exchange", "generation_exchange")
	viper.SetDefault("rabbitmq_queue", "generation_queue")
	viper.SetDefault("rabbitmq_routing_key", "generation.request")
	viper.SetDefault("rabbitmq_kind", "direct")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Enabled:      viper.GetBool("rabbitmq_enabled"),
		Host:         viper.GetString("rabbitmq_host"),
		Port:         viper.GetInt("rabbitmq_port"),
		User:         viper.GetString("rabbitmq_user"),
		Pass:         viper.GetString("rabbitmq_pass"),
		ExchangeName: viper.GetString("rabbitmq_exchange"),
		QueueName:    viper.GetString("rabbitmq_queue"),
		RoutingKey:   viper.GetString("rabbitmq_routing_key"),
		Kind:         viper.GetString("rabbitmq_kind"),
	}

	var minioClient *minio.Client
	if url := viper.GetString("minio.url"); url != "" {
		minioClient, err = minio.New(url, &minio.Options{
			Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
			Secure: false,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Worker: Worker{
			Python:      viper.GetString("worker.python"),
			ImageScript: viper.GetString("worker.image_script"),
			VideoScript: viper.GetString("worker.video_script"),
			StoryScript: viper.GetString("worker.story_script"),
			Timeout:     viper.GetDuration("worker.timeout"),
			UploadDir:   viper.GetString("worker.upload_dir"),
		},
		Gemini: Gemini{
			APIKey: viper.GetString("gemini.api_key"),
			Model:  viper.GetString("gemini.model"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
