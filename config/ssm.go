package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"gopkg.in/yaml.v3"
)

type DBEntry struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// GetDSN builds a go-sql-driver DSN without a schema; the schema is selected per tenant.
func (e DBEntry) GetDSN() string {
	host := e.Host
	if !strings.Contains(host, ":") {
		host = host + ":3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/?parseTime=true", e.Username, e.Password, host)
}

type ParameterReader interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ApplySSM replaces Database.DSN with the first entry stored in the SSM parameter
// named by Database.SSMParameter. A nil reader uses the default AWS config chain.
func (cfg *Config) ApplySSM(ctx context.Context, client ParameterReader) error {
	name := cfg.Database.SSMParameter
	if name == "" {
		return nil
	}

	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		client = ssm.NewFromConfig(awsCfg)
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get parameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return fmt.Errorf("parameter %s is empty", name)
	}

	var entries []DBEntry
	if err := yaml.Unmarshal([]byte(*out.Parameter.Value), &entries); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("parameter %s has no database entries", name)
	}

	cfg.Database.DSN = entries[0].GetDSN()
	return nil
}
