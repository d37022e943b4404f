package recommend

// SelectEngine maps an explicit preference, or the request's shape under
// PreferenceAuto, onto the engine to dispatch. Pure and deterministic.
func SelectEngine(cfg Config, req Request) Engine {
	switch req.Preference {
	case PreferenceFast:
		return EngineFast
	case PreferenceContext:
		return EngineContext
	case PreferenceHybrid:
		return EngineHybrid
	case PreferenceAuto:
		if isComplex(cfg, req) {
			return EngineContext
		}
		return EngineFast
	default:
		// Unknown preference behaves like auto rather than failing the call.
		if isComplex(cfg, req) {
			return EngineContext
		}
		return EngineFast
	}
}

func isComplex(cfg Config, req Request) bool {
	if len(req.Title) > cfg.ComplexTitleLength {
		return true
	}
	if len(req.Description) > cfg.ComplexDescLength {
		return true
	}
	if len(req.Technologies) > cfg.ComplexTechCount {
		return true
	}
	if len(req.Interests) > cfg.ComplexInterestsLength {
		return true
	}
	return false
}
