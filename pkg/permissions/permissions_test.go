package permissions

import "testing"

func TestInstructions(t *testing.T) {
	granted := ScreenRecordingGranted()
	msg := Instructions()

	if granted && msg != "" {
		t.Errorf("已授权时不应有提示: %q", msg)
	}
	if !granted && msg == "" {
		t.Error("未授权时应有提示")
	}
	t.Logf("屏幕录制权限: %v", granted)
}
