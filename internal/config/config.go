package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string `mapstructure:"PORT"`
	DatabasePath                  string `mapstructure:"DATABASE_PATH"`
	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	AdminUsername                 string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash             string `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminPassword                 string `mapstructure:"ADMIN_PASSWORD"`
	MailServer                    string `mapstructure:"MAIL_SERVER"`
	MailPort                      int    `mapstructure:"MAIL_PORT"`
	MailUseTLS                    bool   `mapstructure:"MAIL_USE_TLS"`
	MailUsername                  string `mapstructure:"MAIL_USERNAME"`
	MailPassword                  string `mapstructure:"MAIL_PASSWORD"`
	MailDefaultSender             string `mapstructure:"MAIL_DEFAULT_SENDER"`
	OrganizationName              string `mapstructure:"ORGANIZATION_NAME"`
	QRStorageDir                  string `mapstructure:"QR_STORAGE_DIR"`
	LegacyDataDir                 string `mapstructure:"LEGACY_DATA_DIR"`
	EmailConcurrency              int    `mapstructure:"EMAIL_CONCURRENCY"`
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	EnableCORS                    bool   `mapstructure:"ENABLE_CORS"`
}

// MailEnabled reports whether enough SMTP settings are present to send mail.
func (c *Config) MailEnabled() bool {
	return c.MailServer != "" && c.MailUsername != ""
}

// DiscordLoginEnabled reports whether staff may sign in through Discord.
// Membership of the configured guild is what makes someone staff, so the
// guild ID is required too.
func (c *Config) DiscordLoginEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != "" && c.DiscordGuildID != ""
}

func LoadConfig() *Config {
	// A missing .env is normal in production.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	viper.SetDefault("PORT", "5000")
	viper.SetDefault("DATABASE_PATH", "yep_id.db")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD", "admin123")
	viper.SetDefault("MAIL_SERVER", "smtp.gmail.com")
	viper.SetDefault("MAIL_PORT", 587)
	viper.SetDefault("MAIL_USE_TLS", true)
	viper.SetDefault("ORGANIZATION_NAME", "SAN AGUSTIN YEP ID System")
	viper.SetDefault("QR_STORAGE_DIR", "static/qr_codes")
	viper.SetDefault("LEGACY_DATA_DIR", ".")
	viper.SetDefault("EMAIL_CONCURRENCY", 4)
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:5000/auth/discord/callback")

	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("ADMIN_USERNAME")
	viper.BindEnv("ADMIN_PASSWORD_HASH")
	viper.BindEnv("ADMIN_PASSWORD")
	viper.BindEnv("MAIL_SERVER")
	viper.BindEnv("MAIL_PORT")
	viper.BindEnv("MAIL_USE_TLS")
	viper.BindEnv("MAIL_USERNAME")
	viper.BindEnv("MAIL_PASSWORD")
	viper.BindEnv("MAIL_DEFAULT_SENDER")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("ENABLE_CORS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	if config.MailDefaultSender == "" {
		config.MailDefaultSender = config.MailUsername
	}
	if config.JWTSecret == "" {
		log.Printf("JWT_SECRET is not set, admin sessions will not survive a restart")
	}

	return &config
}
