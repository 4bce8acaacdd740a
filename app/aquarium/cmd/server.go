package main

import (
	"context"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/session"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// sessionServer 把会话挂到 BaseApp 生命周期上：启动时完成初始化与离线追赶，
// 运行期间记录每次保存后的文档概况
type sessionServer struct {
	sess   *session.Session
	userID string
	logger logger.Logger

	unsubscribe func()
}

func newSessionServer(sess *session.Session, userID string, l logger.Logger) *sessionServer {
	return &sessionServer{sess: sess, userID: userID, logger: l.Named("aquarium")}
}

func (s *sessionServer) Start(ctx context.Context) error {
	r, err := s.sess.Start(ctx, s.userID)
	if err != nil {
		return err
	}

	doc, err := s.sess.Document(ctx, false)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session ready",
		"user_id", s.userID,
		"offline_hours", r.HoursPassed,
		"days_passed", r.DaysPassed,
		"promotions", len(r.Promotions),
		"newly_sick", len(r.NewlySick),
		"water_turned_dirty", r.WaterTurnedDirty,
	)
	if notice := r.DeathNotice(); notice != "" {
		s.logger.WarnContext(ctx, "death notice", "notice", notice)
	}
	s.summarize(doc)

	s.unsubscribe = s.sess.Subscribe(s.summarize)
	return nil
}

func (s *sessionServer) Stop(context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return nil
}

func (s *sessionServer) summarize(doc *playerdoc.PlayerState) {
	if doc == nil {
		return
	}
	s.logger.Info("tank",
		"dragon_bones", doc.DragonBones,
		"fish", len(doc.FishList),
		"living", len(doc.LivingFish()),
		"temperature", doc.TankEnvironment.Temperature,
		"water", doc.TankEnvironment.WaterQualityStatus,
	)
}
