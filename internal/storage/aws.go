// Package storage merges the PDFs of a batch and publishes the result to S3.
package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// NewAWSConfig loads the shared AWS configuration. Static keys win over the
// default credential chain when both are set.
func NewAWSConfig(ctx context.Context, cfg common.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, common.NewAppError(common.CodeConfig, "loading aws config", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return awsCfg, nil
}
