package console

import (
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

type turnMsg struct {
	Turn interview.Turn
	Err  error
}

type coachingMsg struct {
	Artifact session.Artifact
	Err      error
}

type reportMsg struct {
	Report report.Report
	Err    error
}
