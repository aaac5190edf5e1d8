package http

import (
	"net/http"
)

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request, sess requestSession) {
	OK(sess.Controller.Snapshot().Strategies).Write(w)
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request, sess requestSession) {
	var req NameRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	st, err := sess.Controller.AddStrategy(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	Created(st).Write(w)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	found, err := sess.Controller.DeleteStrategy(r.Context(), t.StrategyID)
	s.writeChange(w, r, found, err)
}

func (s *Server) handleStrategyNote(w http.ResponseWriter, r *http.Request, sess requestSession) {
	var req NoteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t := ParseTarget(r)
	found, err := sess.Controller.UpdateStrategyNote(r.Context(), t.StrategyID, sanitizeNote(req.Note))
	s.writeChange(w, r, found, err)
}

func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request, sess requestSession) {
	var req NameRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t := ParseTarget(r)
	m, found, err := sess.Controller.AddMonth(r.Context(), t.StrategyID, sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		NotFound().Write(w)
		return
	}
	Created(m).Write(w)
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	found, err := sess.Controller.DeleteMonth(r.Context(), t.StrategyID, t.MonthID)
	s.writeChange(w, r, found, err)
}

func (s *Server) handleMonthNote(w http.ResponseWriter, r *http.Request, sess requestSession) {
	var req NoteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t := ParseTarget(r)
	found, err := sess.Controller.UpdateMonthNote(r.Context(), t.StrategyID, t.MonthID, sanitizeNote(req.Note))
	s.writeChange(w, r, found, err)
}

func (s *Server) handleMonthStats(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	stats, found := sess.Controller.MonthStats(t.StrategyID, t.MonthID)
	if !found {
		NotFound().Write(w)
		return
	}
	OK(stats).Write(w)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	a, found := sess.Controller.Analysis(t.StrategyID, t.MonthID)
	if !found {
		NotFound().Write(w)
		return
	}
	OK(a).Write(w)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	a, found, err := sess.Controller.Analyze(r.Context(), t.StrategyID, t.MonthID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		NotFound().Write(w)
		return
	}
	OK(a).Write(w)
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	trade, found, err := sess.Controller.AddTrade(r.Context(), t.StrategyID, t.MonthID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		NotFound().Write(w)
		return
	}
	Created(trade).Write(w)
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request, sess requestSession) {
	var req TradeEditRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	edit, err := req.Edit()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t := ParseTarget(r)
	trade, found, err := sess.Controller.UpdateTrade(r.Context(), t.StrategyID, t.MonthID, t.TradeID, edit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		NotFound().Write(w)
		return
	}
	OK(trade).Write(w)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request, sess requestSession) {
	t := ParseTarget(r)
	found, err := sess.Controller.DeleteTrade(r.Context(), t.StrategyID, t.MonthID, t.TradeID)
	s.writeChange(w, r, found, err)
}

// writeChange answers a delete or note update.
func (s *Server) writeChange(w http.ResponseWriter, r *http.Request, found bool, err error) {
	switch {
	case err != nil:
		s.writeError(w, r, err)
	case !found:
		NotFound().Write(w)
	default:
		NoContent().Write(w)
	}
}
