// Package aws implements a provider backed by the AWS SDK. Namespaces are
// AWS regions.
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lebinh/aq/internal/ir"
	"github.com/lebinh/aq/internal/provider"
)

// S3API is the subset of the S3 client the provider uses.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// S3ClientFactory creates an S3 client for a region.
type S3ClientFactory func(ctx context.Context, region string) (S3API, error)

// EC2API is the subset of the EC2 client the provider uses.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2ClientFactory creates an EC2 client for a region.
type EC2ClientFactory func(ctx context.Context, region string) (EC2API, error)

// lister lists one collection in one region.
type lister func(ctx context.Context, p *Provider, region string) ([]ir.Item, error)

type collectionDef struct {
	schema ir.CollectionSchema
	list   lister
}

var collections = map[provider.Collection]collectionDef{
	{Resource: "ec2", Collection: "instances"}: {
		schema: ir.CollectionSchema{
			Identifiers: []string{"id"},
			Attributes: []string{
				"image_id", "instance_type", "key_name", "launch_time", "placement",
				"private_ip_address", "public_ip_address", "state", "subnet_id", "tags", "vpc_id",
			},
		},
		list: listInstances,
	},
	{Resource: "s3", Collection: "buckets"}: {
		schema: ir.CollectionSchema{
			Identifiers: []string{"name"},
			Attributes:  []string{"bucket_region", "creation_date"},
		},
		list: listBuckets,
	},
}

// Provider reads collections from AWS.
type Provider struct {
	newS3  S3ClientFactory
	newEC2 EC2ClientFactory
	logger *slog.Logger

	mu         sync.Mutex
	s3Clients  map[string]S3API
	ec2Clients map[string]EC2API
}

// Option configures a Provider.
type Option func(*Provider)

// WithS3ClientFactory replaces how S3 clients are created.
func WithS3ClientFactory(f S3ClientFactory) Option {
	return func(p *Provider) {
		p.newS3 = f
	}
}

// WithEC2ClientFactory replaces how EC2 clients are created.
func WithEC2ClientFactory(f EC2ClientFactory) Option {
	return func(p *Provider) {
		p.newEC2 = f
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a provider that loads credentials from the default AWS
// configuration chain.
func New(opts ...Option) *Provider {
	p := &Provider{
		newS3:      DefaultS3Client,
		newEC2:     DefaultEC2Client,
		logger:     slog.Default(),
		s3Clients:  make(map[string]S3API),
		ec2Clients: make(map[string]EC2API),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultS3Client creates an S3 client for region from the shared AWS
// configuration (environment, ~/.aws, instance role).
func DefaultS3Client(ctx context.Context, region string) (S3API, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// DefaultEC2Client creates an EC2 client for region from the shared AWS
// configuration.
func DefaultEC2Client(ctx context.Context, region string) (EC2API, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

func loadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, nil
}

func (p *Provider) s3Client(ctx context.Context, region string) (S3API, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.s3Clients[region]; ok {
		return c, nil
	}
	c, err := p.newS3(ctx, region)
	if err != nil {
		return nil, err
	}
	p.s3Clients[region] = c
	return c, nil
}

func (p *Provider) ec2Client(ctx context.Context, region string) (EC2API, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.ec2Clients[region]; ok {
		return c, nil
	}
	c, err := p.newEC2(ctx, region)
	if err != nil {
		return nil, err
	}
	p.ec2Clients[region] = c
	return c, nil
}

func lookup(resource, collection string) (collectionDef, error) {
	def, ok := collections[provider.Collection{Resource: resource, Collection: collection}]
	if !ok {
		return collectionDef{}, fmt.Errorf("%w <%s> of resource <%s>", provider.ErrUnknownCollection, collection, resource)
	}
	return def, nil
}

// Describe implements provider.Provider.
func (p *Provider) Describe(ctx context.Context, region, resource, collection string) (ir.CollectionSchema, error) {
	def, err := lookup(resource, collection)
	if err != nil {
		return ir.CollectionSchema{}, err
	}
	return def.schema, nil
}

// List implements provider.Provider.
func (p *Provider) List(ctx context.Context, region, resource, collection string) ([]ir.Item, error) {
	def, err := lookup(resource, collection)
	if err != nil {
		return nil, err
	}
	items, err := def.list(ctx, p, region)
	if err != nil {
		return nil, fmt.Errorf("list %s_%s in %s: %w", resource, collection, region, err)
	}
	return items, nil
}

// Collections implements provider.Catalog.
func (p *Provider) Collections(ctx context.Context) ([]provider.Collection, error) {
	out := make([]provider.Collection, 0, len(collections))
	for key := range collections {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TableName() < out[j].TableName()
	})
	return out, nil
}

// listBuckets pages through the buckets located in region.
func listBuckets(ctx context.Context, p *Provider, region string) ([]ir.Item, error) {
	client, err := p.s3Client(ctx, region)
	if err != nil {
		return nil, err
	}

	var items []ir.Item
	paginator := s3.NewListBucketsPaginator(client, &s3.ListBucketsInput{
		BucketRegion: aws.String(region),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Buckets {
			var created any
			if b.CreationDate != nil {
				created = *b.CreationDate
			}
			items = append(items, ir.Record{
				"name":          aws.ToString(b.Name),
				"bucket_region": aws.ToString(b.BucketRegion),
				"creation_date": created,
			})
		}
	}

	p.logger.Debug("listed buckets", "region", region, "count", len(items))
	return items, nil
}

// listInstances pages through the instances of every reservation in region.
func listInstances(ctx context.Context, p *Provider, region string) ([]ir.Item, error) {
	client, err := p.ec2Client(ctx, region)
	if err != nil {
		return nil, err
	}

	var items []ir.Item
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				items = append(items, instanceRecord(inst))
			}
		}
	}

	p.logger.Debug("listed instances", "region", region, "count", len(items))
	return items, nil
}

// instanceRecord flattens an instance into the attribute shapes the EC2 API
// documents. Tags stay a Key/Value list.
func instanceRecord(inst ec2types.Instance) ir.Record {
	record := ir.Record{
		"id":                 aws.ToString(inst.InstanceId),
		"image_id":           aws.ToString(inst.ImageId),
		"instance_type":      string(inst.InstanceType),
		"key_name":           optional(inst.KeyName),
		"private_ip_address": optional(inst.PrivateIpAddress),
		"public_ip_address":  optional(inst.PublicIpAddress),
		"subnet_id":          optional(inst.SubnetId),
		"vpc_id":             optional(inst.VpcId),
		"launch_time":        nil,
		"placement":          nil,
		"state":              nil,
		"tags":               nil,
	}
	if inst.LaunchTime != nil {
		record["launch_time"] = *inst.LaunchTime
	}
	if inst.Placement != nil {
		record["placement"] = map[string]any{
			"AvailabilityZone": aws.ToString(inst.Placement.AvailabilityZone),
			"Tenancy":          string(inst.Placement.Tenancy),
		}
	}
	if inst.State != nil {
		record["state"] = map[string]any{
			"Code": int64(aws.ToInt32(inst.State.Code)),
			"Name": string(inst.State.Name),
		}
	}
	if len(inst.Tags) > 0 {
		tags := make([]map[string]any, len(inst.Tags))
		for i, tag := range inst.Tags {
			tags[i] = map[string]any{"Key": aws.ToString(tag.Key), "Value": aws.ToString(tag.Value)}
		}
		record["tags"] = tags
	}
	return record
}

// optional returns nil for an unset string.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
