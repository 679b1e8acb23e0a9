package logging

import "go.uber.org/zap"

func NewSugaredLogger(env string) *zap.SugaredLogger {
	var logger *zap.Logger
	var err error
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("cannot initialize zap")
	}
	return logger.Sugar()
}
