package inframed

import (
	"bytes"
	"context"

	"github.com/inframed/inframed/blobstore"
	"github.com/inframed/inframed/internal/convert"
	"github.com/inframed/inframed/repository"
)

// ConvertConfig is a parsed conversion config.
type ConvertConfig = convert.Config

// Report summarizes a conversion run.
type Report = convert.Report

// FileStats holds the line counters of one input file.
type FileStats = convert.FileStats

// Thresholds are the limits a conversion run is checked against.
type Thresholds = convert.Thresholds

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds { return convert.DefaultThresholds() }

// LoadConvertConfig reads the conversion config at path.
func LoadConvertConfig(path string) (*ConvertConfig, error) {
	return convert.LoadConfig(path)
}

// Convert runs the conversion described by the config file at path. The
// report is returned on failure too, with the counts reached so far.
func Convert(ctx context.Context, path string, optFns ...Option) (*Report, error) {
	cfg, err := convert.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConvertWith(ctx, cfg, optFns...)
}

// ConvertWith runs the conversion described by cfg.
func ConvertWith(ctx context.Context, cfg *ConvertConfig, optFns ...Option) (*Report, error) {
	o := newOptions(optFns)
	log := o.logger.WithConfig(cfg.RepositoryConfigPath())
	rep, err := convert.Convert(ctx, cfg, o.convertOptions()...)
	log.LogConvert(ctx, rep, err)
	return rep, err
}

// OpenRepository opens the repository whose repository_config is at path.
func OpenRepository(ctx context.Context, path string, optFns ...Option) (*repository.Repository, error) {
	o := newOptions(optFns)
	return repository.OpenFile(ctx, path, o.repositoryOptions()...)
}

// OpenRepositoryFrom opens the repository_config name from store, for
// example a repository published to S3.
func OpenRepositoryFrom(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*repository.Repository, error) {
	o := newOptions(optFns)
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	cfg, err := repository.ReadConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	opts := append(o.repositoryOptions(), repository.WithConfigName(name))
	return repository.Open(ctx, store, cfg, opts...)
}

// Publish copies the repository whose repository_config is at path to dst,
// the config last.
func Publish(ctx context.Context, path string, dst blobstore.BlobStore, optFns ...Option) (*repository.Manifest, error) {
	o := newOptions(optFns)
	m, err := repository.Publish(ctx, path, dst, o.repositoryOptions()...)
	o.logger.WithConfig(path).LogPublish(ctx, m, err)
	return m, err
}
