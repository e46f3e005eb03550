package service

import (
	"context"
	"fmt"

	"github.com/yeisme/advstorage/pkg/internal/catalog"
	"github.com/yeisme/advstorage/pkg/internal/movejob"
	"github.com/yeisme/advstorage/pkg/layout"
)

// Status 插件状态.
type Status struct {
	IndexerIsActive         bool  `json:"IndexerIsActive"`
	DelayedDeletionIsActive bool  `json:"DelayedDeletionIsActive"`
	FilesPendingDeletion    int64 `json:"FilesPendingDeletion"`
}

// AdoptInstance 采纳存储区外的文件.
func (s *Service) AdoptInstance(ctx context.Context, path string, takeOwnership bool) (layout.AdoptResult, error) {
	if !s.enabled {
		return layout.AdoptResult{}, ErrDisabled
	}

	return s.catalog.AdoptFile(catalog.WithSource(ctx, catalog.SourceRest), path, takeOwnership)
}

// AbandonInstance 放弃之前采纳的文件，文件保留在磁盘上.
func (s *Service) AbandonInstance(ctx context.Context, path string) error {
	if !s.enabled {
		return ErrDisabled
	}

	return s.catalog.AbandonFile(catalog.WithSource(ctx, catalog.SourceRest), path)
}

// MoveStorage 创建迁移任务，返回任务 ID.
//
// resources 可以是任意层级的资源标识，展开为实例后按给定顺序迁移.
func (s *Service) MoveStorage(ctx context.Context, resources []string, target string) (string, error) {
	if !s.enabled {
		return "", ErrDisabled
	}

	if !s.reg.HasStorage(target) {
		return "", fmt.Errorf("%w: %s", layout.ErrUnknownStorage, target)
	}

	var (
		instances []string
		byType    = movejob.ResourcesByType{}
		seen      = map[string]struct{}{}
	)

	for _, id := range resources {
		level, err := s.catalog.LookupResource(ctx, id)
		if err != nil {
			return "", err
		}

		byType[level.String()] = append(byType[level.String()], id)

		ids, err := s.catalog.Instances(ctx, level, id)
		if err != nil {
			return "", err
		}

		for _, inst := range ids {
			if _, dup := seen[inst]; dup {
				continue
			}

			seen[inst] = struct{}{}
			instances = append(instances, inst)
		}
	}

	job := movejob.New(target, instances, byType, s.catalog, s.reg, s.logger).WithEvents(s.events)

	id, err := s.runner.Submit(ctx, job)
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("job_id", id).
		Str("target", target).
		Int("instances", len(instances)).
		Msg("move-storage job submitted")

	return id, nil
}

// Status 返回索引器与延迟删除器的运行状态.
func (s *Service) Status(ctx context.Context) (Status, error) {
	st := Status{
		IndexerIsActive:         s.indexer != nil && s.indexer.IsRunning(),
		DelayedDeletionIsActive: s.deleter != nil && s.deleter.IsRunning(),
	}

	if s.deleter != nil {
		n, err := s.deleter.PendingDeletionFilesCount(ctx)
		if err != nil {
			return st, err
		}

		st.FilesPendingDeletion = n
	}

	return st, nil
}
