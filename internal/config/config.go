package config

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env:"APP_ENV" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Orders     OrdersConfig     `yaml:"orders"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Cache      CacheConfig      `yaml:"cache"`
	Bootstrap  BootstrapConfig  `yaml:"bootstrap"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с управляемой БД
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-required:"true"`
	Password        string        `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name            string        `yaml:"name" env:"DB_NAME" env-required:"true"`
	SSLMode         string        `yaml:"sslmode" env-default:"require"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
}

// DSN собирает строку подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// AuthConfig настройка проверки токенов провайдера
type AuthConfig struct {
	JWTSecret  string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	AdminRole  string `yaml:"admin_role" env-default:"admin"`
	CookieName string `yaml:"cookie_name" env-default:"sb-access-token"`
}

// OrdersConfig - поведение Order Store API
type OrdersConfig struct {
	// LenientStatus пропускает статусы вне перечисления до БД без проверки
	LenientStatus bool `yaml:"lenient_status"`
}

// DirectoryConfig - каталог пользователей провайдера
type DirectoryConfig struct {
	UsersTable string `yaml:"users_table" env-default:"auth.users"`
	PageSize   int    `yaml:"page_size" env-default:"50"`
}

// CacheConfig - кэш профилей; пустой адрес выключает кэш
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"-" env:"REDIS_PASSWORD"`
	TTL           time.Duration `yaml:"ttl" env-default:"5m"`
}

type BootstrapConfig struct {
	SkipOnStartup bool `yaml:"skip_on_startup"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	// .env подхватываем до чтения конфига, отсутствие файла не ошибка
	_ = godotenv.Load()

	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
