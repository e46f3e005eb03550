package handle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/advstorage/pkg/context"
	"github.com/yeisme/advstorage/pkg/middleware"
)

const probeTimeout = 2 * time.Second

const (
	statusOK        = "ok"
	statusDisabled  = "disabled"
	statusUnhealthy = "unhealthy"
)

// errDisabled 组件未启用，不算故障.
var errDisabled = errors.New("disabled")

type probe func(ctx context.Context, c *gin.Context) error

// probes 按固定顺序检查，/health 汇总全部结果.
var probes = []struct {
	name  string
	check probe
}{
	{"db", probeDB},
	{"kv", probeKV},
	{"mq", probeMQ},
	{"queue", probeQueue},
	{"storage", probeStorage},
}

// ComponentHealth 单个组件的检查结果.
type ComponentHealth struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func runProbe(c *gin.Context, name string, check probe) ComponentHealth {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	res := ComponentHealth{Component: name, Status: statusOK}

	switch err := check(ctx, c); {
	case errors.Is(err, errDisabled):
		res.Status = statusDisabled
	case err != nil:
		res.Status = statusUnhealthy
		res.Error = err.Error()
	}

	return res
}

// Health 汇总所有组件，任一组件故障时返回 503.
func Health(c *gin.Context) {
	code := http.StatusOK
	components := make([]ComponentHealth, 0, len(probes))

	for _, p := range probes {
		res := runProbe(c, p.name, p.check)
		if res.Status == statusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		components = append(components, res)
	}

	status := statusOK
	if code != http.StatusOK {
		status = statusUnhealthy
	}

	c.JSON(code, gin.H{"status": status, "components": components})
}

// HealthComponent 检查 :component 指定的单个组件.
func HealthComponent(c *gin.Context) {
	name := c.Param("component")

	for _, p := range probes {
		if p.name != name {
			continue
		}

		res := runProbe(c, p.name, p.check)
		if res.Status == statusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, res)
			return
		}

		c.JSON(http.StatusOK, res)

		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "unknown component: " + name})
}

func probeDB(ctx context.Context, c *gin.Context) error {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil {
		return errors.New("db client not initialized")
	}

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

func probeKV(ctx context.Context, c *gin.Context) error {
	kvc := ctxPkg.GetKVClient(c.Request.Context())
	if kvc == nil || kvc.KVStore == nil {
		return errors.New("kv client not initialized")
	}

	return kvc.Ping(ctx)
}

func probeMQ(_ context.Context, c *gin.Context) error {
	if ctxPkg.GetMQClient(c.Request.Context()) == nil {
		return errDisabled
	}

	return nil
}

func probeQueue(ctx context.Context, c *gin.Context) error {
	q := ctxPkg.GetQueue(c.Request.Context())
	if q == nil {
		return errors.New("deletion queue not initialized")
	}

	_, err := q.Size(ctx)

	return err
}

// probeStorage 确认核心存储区与所有附加存储区的根目录仍然存在.
func probeStorage(_ context.Context, c *gin.Context) error {
	svc := middleware.GetService(c)
	if svc == nil || svc.Registry() == nil {
		return errDisabled
	}

	reg := svc.Registry()

	roots := make([]string, 0, len(reg.StorageIDs())+1)
	if core, err := reg.CoreRootPath(); err == nil {
		roots = append(roots, core)
	}

	for _, id := range reg.StorageIDs() {
		root, err := reg.StorageRootPath(id)
		if err != nil {
			return err
		}

		roots = append(roots, root)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return fmt.Errorf("storage root %q is not a directory", root)
		}
	}

	return nil
}
