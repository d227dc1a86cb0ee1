package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/domain/repository"
)

// s3API é o subconjunto do cliente S3 usado pelo store, extraído para
// permitir testes sem AWS.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store persiste checkpoints como objetos em um bucket S3, para execuções
// serverless (Lambda, containers efêmeros) sem filesystem durável.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store resolve as credenciais pela cadeia padrão da AWS e cria um
// store apontando para o bucket informado.
func NewS3Store(ctx context.Context, bucket, prefix string) (repository.CheckpointStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// NewS3StoreWithClient injeta um cliente pronto (testes).
func NewS3StoreWithClient(client s3API, bucket, prefix string) repository.CheckpointStore {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key + ".json"
	}
	return s.prefix + "/" + key + ".json"
}

// Load implementa repository.CheckpointStore; NoSuchKey vira (nil, nil).
func (s *S3Store) Load(ctx context.Context, key string) (*entity.BackfillCheckpoint, error) {
	objKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching checkpoint object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint object: %w", err)
	}

	var cp entity.BackfillCheckpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint object: %w", err)
	}
	return &cp, nil
}

// Save grava o checkpoint no bucket.
func (s *S3Store) Save(ctx context.Context, checkpoint *entity.BackfillCheckpoint) error {
	raw, err := json.Marshal(checkpoint)
	if err != nil {
		return err
	}

	objKey := s.objectKey(checkpoint.Key())
	contentType := "application/json"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &objKey,
		Body:        bytes.NewReader(raw),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("storing checkpoint object: %w", err)
	}
	return nil
}

// Delete remove o objeto; no S3 a remoção de chave inexistente já é no-op.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	objKey := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		return fmt.Errorf("deleting checkpoint object: %w", err)
	}
	return nil
}
