// Package config loads squid.json, the project configuration.
//
// Values are layered with viper, highest precedence first: command line
// flags, SQUID_* environment variables (a .env file next to squid.json is
// read first), the file itself, then defaults.
//
// # Configuration File Structure
//
//	{
//	  "name": "blog",
//	  "paths": {"pages": "src/pages", "lambda": "src/lambda", "output": "build", "static": "public"},
//	  "server": {
//	    "port": 3000,
//	    "moduleTimeout": "5s",
//	    "notFound": "404",
//	    "cors": {"enabled": true, "allowedOrigins": ["https://example.com"]}
//	  },
//	  "build": {"compiler": "esbuild", "minify": true, "conflictMode": "strict"},
//	  "lambda": {"gateway": "https://api.example.com", "packageName": "@blog/lambda"},
//	  "artifacts": {"store": "s3", "bucket": "blog-artifacts", "prefix": "site"},
//	  "log": {"level": "info", "format": "text"},
//	  "dev": {"reload": true, "debounce": "10ms"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir(cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	fmt.Println("Listening on", cfg.Addr())
package config
