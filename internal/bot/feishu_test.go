package bot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedFeishuMessage struct {
	ReceiveID     string
	ReceiveIDType string
	MsgType       string
	Text          string
}

func fakeFeishuCreate(out *[]capturedFeishuMessage, resp *larkim.CreateMessageResp, err error) feishuCreateFunc {
	return func(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error) {
		if err != nil {
			return nil, err
		}
		var content struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal([]byte(larkcore.StringValue(body.Content)), &content)
		*out = append(*out, capturedFeishuMessage{
			ReceiveID:     larkcore.StringValue(body.ReceiveId),
			ReceiveIDType: receiveIDType,
			MsgType:       larkcore.StringValue(body.MsgType),
			Text:          content.Text,
		})
		return resp, nil
	}
}

func okFeishuResp() *larkim.CreateMessageResp {
	return &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 0}}
}

func TestFeishuBot_SendMessage(t *testing.T) {
	var sent []capturedFeishuMessage
	f := NewFeishuBot("cli_app_id", "secret", "oc_home")
	f.create = fakeFeishuCreate(&sent, okFeishuResp(), nil)

	require.NoError(t, f.SendMessage(OutboundMessage{Content: `say "hi"` + "\n"}))
	require.NoError(t, f.SendMessage(OutboundMessage{Content: "dm", User: "ou_1"}))

	require.Len(t, sent, 2)
	assert.Equal(t, "oc_home", sent[0].ReceiveID)
	assert.Equal(t, larkim.ReceiveIdTypeChatId, sent[0].ReceiveIDType)
	assert.Equal(t, larkim.MsgTypeText, sent[0].MsgType)
	assert.Equal(t, `say "hi"`+"\n", sent[0].Text)
	assert.Equal(t, "ou_1", sent[1].ReceiveID)
	assert.Equal(t, larkim.ReceiveIdTypeOpenId, sent[1].ReceiveIDType)
}

func TestFeishuReceiver(t *testing.T) {
	id, idType := feishuReceiver(OutboundMessage{Channel: "oc_1", User: "ou_1"}, "oc_home")
	assert.Equal(t, "oc_1", id)
	assert.Equal(t, larkim.ReceiveIdTypeChatId, idType)

	id, idType = feishuReceiver(OutboundMessage{User: "ou_1"}, "oc_home")
	assert.Equal(t, "ou_1", id)
	assert.Equal(t, larkim.ReceiveIdTypeOpenId, idType)

	id, idType = feishuReceiver(OutboundMessage{}, "oc_home")
	assert.Equal(t, "oc_home", id)
	assert.Equal(t, larkim.ReceiveIdTypeChatId, idType)
}

func TestFeishuBot_SendMessage_Errors(t *testing.T) {
	var sent []capturedFeishuMessage

	f := NewFeishuBot("cli_app_id", "secret", "")
	f.create = fakeFeishuCreate(&sent, okFeishuResp(), nil)
	assert.Error(t, f.SendMessage(OutboundMessage{Content: "hi"}), "no target")

	f = NewFeishuBot("cli_app_id", "secret", "oc_home")
	f.create = fakeFeishuCreate(&sent, nil, errors.New("network down"))
	assert.Error(t, f.SendMessage(OutboundMessage{Content: "hi"}))

	f.create = fakeFeishuCreate(&sent, &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230002, Msg: "bot not in chat"}}, nil)
	err := f.SendMessage(OutboundMessage{Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot not in chat")

	f.create = nil
	assert.Error(t, f.SendMessage(OutboundMessage{Content: "hi"}))
}

func TestFeishuBot_HandleMessageReceive(t *testing.T) {
	f := NewFeishuBot("cli_app_id", "secret", "oc_home")

	var got []BotMessage
	f.SetMessageHandler(func(msg BotMessage) { got = append(got, msg) })

	event := &larkim.P2MessageReceiveV1{Event: &larkim.P2MessageReceiveV1Data{
		Sender: &larkim.EventSender{
			SenderId:   &larkim.UserId{OpenId: larkcore.StringPtr("ou_1")},
			SenderType: larkcore.StringPtr("app"),
		},
		Message: &larkim.EventMessage{
			ChatId:      larkcore.StringPtr("oc_1"),
			MessageType: larkcore.StringPtr("text"),
			Content:     larkcore.StringPtr(`{"text":"쥐띠 운세"}`),
		},
	}}

	require.NoError(t, f.handleMessageReceive(context.Background(), event))
	require.NoError(t, f.handleMessageReceive(context.Background(), nil))

	require.Len(t, got, 1)
	assert.Equal(t, "feishu", got[0].Platform)
	assert.Equal(t, "ou_1", got[0].UserID)
	assert.Equal(t, "ou_1", got[0].BotID)
	assert.Equal(t, "oc_1", got[0].Channel)
	assert.Equal(t, "쥐띠 운세", got[0].Content)
}

func TestExtractTextContent(t *testing.T) {
	assert.Equal(t, "hello", extractTextContent(`{"text":"hello"}`))
	assert.Equal(t, `he said "hi"`, extractTextContent(`{"text":"he said \"hi\""}`))
	assert.Equal(t, "plain", extractTextContent("plain"))
	assert.Equal(t, `{"image_key":"x"}`, extractTextContent(`{"image_key":"x"}`))
}
