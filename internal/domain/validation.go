package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors 字段校验错误：字段路径 -> 未通过的规则
type ValidationErrors map[string]string

// Error 实现 error 接口，字段按字母序输出
func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Unwrap 使 errors.Is(err, ErrInvalidMailContent) 成立
func (e ValidationErrors) Unwrap() error { return ErrInvalidMailContent }

// Validator 基于 go-playground/validator 的实体校验器
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建校验器，错误字段名使用 json 标签
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateMailContent 校验邮件表单（含提交的署名覆盖子载荷）
func (v *Validator) ValidateMailContent(content *MailContent) ValidationErrors {
	return v.collect(v.validate.Struct(content))
}

// ValidateSignature 校验署名字段
func (v *Validator) ValidateSignature(fields SignatureFields) ValidationErrors {
	return v.collect(v.validate.Struct(fields))
}

func (v *Validator) collect(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{"_": err.Error()}
	}

	out := make(ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		// 去掉顶层类型名，例如 MailContent.signatureOverride.siteEmail -> signatureOverride.siteEmail
		key := fe.Namespace()
		if idx := strings.Index(key, "."); idx >= 0 {
			key = key[idx+1:]
		}
		out[key] = fe.Tag()
	}
	return out
}
