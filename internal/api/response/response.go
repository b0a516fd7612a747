package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一的 JSON 响应信封，控制台客户端按 code==0 判断成功
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

const (
	SuccessCode = 0
	ErrorCode   = 1
)

func write(c *gin.Context, httpStatus, code int, msg string, data interface{}) {
	c.JSON(httpStatus, Response{Code: code, Msg: msg, Data: data})
}

// Ok 成功返回数据
func Ok(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, SuccessCode, "success", data)
}

// OkWithMessage 成功时返回自定义消息
func OkWithMessage(c *gin.Context, msg string, data interface{}) {
	write(c, http.StatusOK, SuccessCode, msg, data)
}

// Fail 业务逻辑错误（HTTP 仍为 200，错误体现在 code 上）
func Fail(c *gin.Context, msg string) {
	write(c, http.StatusOK, ErrorCode, msg, nil)
}

// BadRequest 参数绑定或请求格式错误
func BadRequest(c *gin.Context, msg string, err error) {
	if msg == "" {
		msg = "请求参数错误"
	}
	if err != nil {
		c.Error(err).SetType(gin.ErrorTypePrivate)
	}
	write(c, http.StatusBadRequest, ErrorCode, msg, nil)
}

// NotFound 资源未找到
func NotFound(c *gin.Context) {
	write(c, http.StatusNotFound, ErrorCode, "资源未找到", nil)
}

// ServerError 服务器内部错误
func ServerError(c *gin.Context, err error) {
	if err != nil {
		c.Error(err).SetType(gin.ErrorTypePrivate)
	}
	write(c, http.StatusInternalServerError, ErrorCode, "服务器内部错误", nil)
}
