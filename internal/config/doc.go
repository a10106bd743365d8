// Package config loads saulapp configuration.
//
// The configuration lives in saulapp.json (or saulapp.yaml / saulapp.yml) at
// the project root. Missing fields take defaults, and a few SAULAPP_*
// environment variables override the file.
//
// # Configuration File Structure
//
//	{
//	  "appName": "saul.app",
//	  "domain": "saul.app",
//	  "port": 2443,
//	  "devMode": false,
//	  "logLevel": "info",
//	  "database": "data/saulapp.db",
//	  "uploads": {
//	    "backend": "s3",
//	    "s3": {"bucket": "saulapp-uploads", "region": "eu-west-1"}
//	  },
//	  "mail": {"smtpAddr": "smtp.example.com:587", "from": "hi@saul.app"},
//	  "server": {"allowedOrigins": ["https://saul.app"], "rateLimit": 20}
//	}
//
// # Environment
//
//	SAULAPP_DEVMODE              overrides devMode
//	SAULAPP_PORT                 overrides port
//	SAULAPP_TOKEN_SECRET         overrides auth.tokenSecret
//	SAULAPP_SMTP_PASSWORD        overrides mail.password
//	SAULAPP_S3_SECRET_ACCESS_KEY overrides uploads.s3.secretAccessKey
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(os.Getenv); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
