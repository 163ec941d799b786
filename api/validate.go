package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// permissionCodePattern 权限编码 resource.action，小写字母、数字与下划线
var permissionCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验器注册自定义规则，可重复调用
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("permcode", func(fl validator.FieldLevel) bool {
			return permissionCodePattern.MatchString(fl.Field().String())
		})
	})
}

// ValidationMessage 把绑定错误转成可读的提示
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "请求参数格式错误"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s 不能为空", field))
		case "permcode":
			msgs = append(msgs, fmt.Sprintf("%s 必须为 resource.action 格式", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s 必须为 %s 之一", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s 超出长度限制 %s", field, fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s 至少需要 %s 项", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s 校验失败 (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
