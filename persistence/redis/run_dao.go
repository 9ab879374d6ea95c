package redis

import (
	"context"

	rd "github.com/go-redis/redis/v9"
	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/util"
	"go.uber.org/zap"
)

const RUN_KEY string = "RUN"
const RUN_ACTIVE_KEY string = "RUN_ACTIVE"

var _ persistence.RunStorage = new(redisRunDao)

type redisRunDao struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.PipelineRun]
}

func NewRedisRunDao(conf Config) *redisRunDao {
	return &redisRunDao{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.PipelineRun](),
	}
}

func (rdao *redisRunDao) SaveRun(run *model.PipelineRun) error {
	key := rdao.baseDao.getNamespaceKey(RUN_KEY)
	activeKey := rdao.baseDao.getNamespaceKey(RUN_ACTIVE_KEY)
	ctx := context.Background()
	data, err := rdao.encoderDecoder.Encode(*run)
	if err != nil {
		return err
	}
	if err := rdao.redisClient.HSet(ctx, key, []string{run.Id, string(data)}).Err(); err != nil {
		logger.Error("error in saving run", zap.String("runId", run.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if run.State.IsTerminal() {
		err = rdao.redisClient.SRem(ctx, activeKey, run.Id).Err()
	} else {
		err = rdao.redisClient.SAdd(ctx, activeKey, run.Id).Err()
	}
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rdao *redisRunDao) GetRun(id string) (*model.PipelineRun, error) {
	key := rdao.baseDao.getNamespaceKey(RUN_KEY)
	ctx := context.Background()
	runStr, err := rdao.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, persistence.NotFoundError{Kind: "run", Name: id}
		}
		logger.Error("error in getting run", zap.String("runId", id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	run, err := rdao.encoderDecoder.Decode([]byte(runStr))
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (rdao *redisRunDao) DeleteRun(id string) error {
	key := rdao.baseDao.getNamespaceKey(RUN_KEY)
	activeKey := rdao.baseDao.getNamespaceKey(RUN_ACTIVE_KEY)
	ctx := context.Background()
	if err := rdao.redisClient.HDel(ctx, key, id).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := rdao.redisClient.SRem(ctx, activeKey, id).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rdao *redisRunDao) ListActiveRuns() ([]*model.PipelineRun, error) {
	activeKey := rdao.baseDao.getNamespaceKey(RUN_ACTIVE_KEY)
	ctx := context.Background()
	ids, err := rdao.redisClient.SMembers(ctx, activeKey).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	runs := make([]*model.PipelineRun, 0, len(ids))
	for _, id := range ids {
		run, err := rdao.GetRun(id)
		if err != nil {
			logger.Error("active run missing from storage", zap.String("runId", id), zap.Error(err))
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
