package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ramiqadoumi/go-control-tracker/internal/alert"
)

// sesAPI is the slice of the SES v2 client the channel calls.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures mail delivery through Amazon SES.
type SESConfig struct {
	Region string
	From   string
	To     []string
}

// SESChannel mails alerts through Amazon SES.
type SESChannel struct {
	client sesAPI
	cfg    SESConfig
}

// NewSESChannel loads AWS credentials from the default chain.
func NewSESChannel(ctx context.Context, cfg SESConfig) (*SESChannel, error) {
	if cfg.From == "" {
		return nil, errors.New("ses channel: from address is not set")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSESChannel(sesv2.NewFromConfig(awsCfg), cfg), nil
}

func newSESChannel(client sesAPI, cfg SESConfig) *SESChannel {
	return &SESChannel{client: client, cfg: cfg}
}

func (c *SESChannel) Name() string { return "ses" }

func (c *SESChannel) Deliver(ctx context.Context, a alert.Alert) error {
	if len(c.cfg.To) == 0 {
		return errors.New("ses channel has no recipients")
	}
	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.cfg.From),
		Destination:      &types.Destination{ToAddresses: c.cfg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject(a))},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(a.Body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
