package idgen

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/sonyflake"
)

// epoch sonyflake 起始时间，发布后不可修改
var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type sonyflakeGenerator struct {
	sf     *sonyflake.Sonyflake
	prefix string
}

// NewSonyflake 创建基于 Sonyflake 的ID生成器
// machineID: 机器ID (0-65535)；prefix 会拼在 base36 编码的 ID 前，如 "fish_"
func NewSonyflake(machineID uint16, prefix string) (Generator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) {
			return machineID, nil
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sonyflake generator")
	}
	return &sonyflakeGenerator{sf: sf, prefix: prefix}, nil
}

func (g *sonyflakeGenerator) NextID() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate id")
	}
	return g.prefix + strconv.FormatUint(id, 36), nil
}
