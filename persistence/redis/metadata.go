package redis

import (
	"context"

	rd "github.com/go-redis/redis/v9"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/util"
)

const WORKFLOW_DEF string = "WF_DEF"

var _ persistence.MetadataStorage = new(redisMetadataStorage)

type redisMetadataStorage struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.Workflow]
}

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Workflow](),
	}
}

func (rms *redisMetadataStorage) SaveWorkflowDefinition(wf model.Workflow) error {
	key := rms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	data, err := rms.encoderDecoder.Encode(wf)
	if err != nil {
		return err
	}
	err = rms.redisClient.HSet(ctx, key, []string{wf.Name, string(data)}).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rms *redisMetadataStorage) DeleteWorkflowDefinition(name string) error {
	key := rms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	err := rms.redisClient.HDel(ctx, key, name).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rms *redisMetadataStorage) GetWorkflowDefinition(name string) (*model.Workflow, error) {
	key := rms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	val, err := rms.redisClient.HGet(ctx, key, name).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, persistence.NotFoundError{Kind: "workflow", Name: name}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	wf, err := rms.encoderDecoder.Decode([]byte(val))
	if err != nil {
		return nil, err
	}
	return wf, nil
}

func (rms *redisMetadataStorage) ListWorkflowDefinitions() ([]model.Workflow, error) {
	key := rms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	vals, err := rms.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	workflows := make([]model.Workflow, 0, len(vals))
	for _, val := range vals {
		wf, err := rms.encoderDecoder.Decode([]byte(val))
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, nil
}
