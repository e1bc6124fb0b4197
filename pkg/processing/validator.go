package processing

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"matchday-service/pkg/common"
)

// DefaultDataValidator 默认数据验证器实现
type DefaultDataValidator struct {
	name     string
	logger   common.Logger
	validate *validator.Validate
}

// NewDataValidator 创建数据验证器
func NewDataValidator(name string, logger common.Logger) DataValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 错误里使用 json 字段名
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &DefaultDataValidator{
		name:     name,
		logger:   logger,
		validate: v,
	}
}

// Validate 校验结构体
func (v *DefaultDataValidator) Validate(ctx context.Context, value interface{}) error {
	err := v.validate.StructCtx(ctx, value)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return common.NewAppError("VALIDATION_FAILED", "Validation failed", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}

	v.logger.Debug("Validation failed: %v", fields)
	return &common.ValidationError{Fields: fields}
}

// GetName 获取验证器名称
func (v *DefaultDataValidator) GetName() string {
	return v.name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "nefield":
		return "must differ from " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}
