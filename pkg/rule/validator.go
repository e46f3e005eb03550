// Package rule 基于 go-playground/validator 校验配置与请求体，标签名为 rule.
package rule

import (
	"errors"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const tagName = "rule"

var (
	inst *validator.Validate
	once sync.Once

	// storageIDPattern 存储池 ID 会出现在记录与日志中，限制为可打印的简单字符.
	storageIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
)

// initValidator 复用 gin 的 validator 引擎，使 binding 与 ValidateStruct 共享自定义规则.
func initValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok && v != nil {
		inst = v
	} else {
		inst = validator.New()
	}

	inst.SetTagName(tagName)
	inst.RegisterTagNameFunc(fieldName)
	registerBuiltins(inst)
}

// fieldName 错误中的字段名优先取 json 标签，其次 mapstructure 标签.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "mapstructure"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return f.Name
}

func registerBuiltins(v *validator.Validate) {
	_ = v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		return filepath.IsAbs(fl.Field().String())
	})

	_ = v.RegisterValidation("storageid", func(fl validator.FieldLevel) bool {
		return storageIDPattern.MatchString(fl.Field().String())
	})

	// fileext: 带前导点的扩展名，如 .dcm
	_ = v.RegisterValidation("fileext", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) > 1 && s[0] == '.' && !strings.ContainsAny(s, `/\`)
	})
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	once.Do(initValidator)

	return inst
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	return Engine().RegisterValidation(tag, fn, opts...)
}

// RegisterAlias 注册别名规则.
func RegisterAlias(alias, rules string) {
	Engine().RegisterAlias(alias, rules)
}

// ValidateStruct 按 rule 标签校验结构体，错误可用 Errors 展开.
func ValidateStruct(s any) error {
	return Engine().Struct(s)
}

// ValidateVar 按规则校验单个变量，例如 ValidateVar("abc", "required,email").
func ValidateVar(field any, tag string) error {
	return Engine().Var(field, tag)
}

// ValidationErrors 字段路径到失败规则的映射，如 {"storages[0].id": "storageid"}.
type ValidationErrors map[string]string

// Errors 展开 validator 的错误.err 不是校验错误时返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))

	for _, fe := range verrs {
		// 去掉顶层结构体名
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}

		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}

		out[path] = rule
	}

	return out
}
