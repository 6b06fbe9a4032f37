package env

import "os"

type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

// Get reads the deployment environment. The value gates how much error
// detail leaves the server and whether local service endpoints are used,
// so refusing to guess is deliberate.
func Get() Environment {
	switch environment := os.Getenv("ENVIRONMENT"); environment {
	case "production":
		return Production
	case "development":
		return Development
	case "":
		panic("No environment var is set")
	default:
		panic("Invalid environment is set: " + environment)
	}
}
