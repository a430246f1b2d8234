package assetid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedConstantsMatchRuntime(t *testing.T) {
	tests := []struct {
		id   ID
		path string
	}{
		{PlayerModel, "models/player.glb"},
		{PlayerAlbedo, "textures/player_albedo.dds"},
		{DefaultFont, "fonts/default.ttf"},
		{MainMenuLayout, "ui/main_menu.layout"},
		{HUDLayout, "ui/hud.layout"},
		{ProgressBarSkin, "ui/skins/progress_bar.skin"},
		{TabBarSkin, "ui/skins/tab_bar.skin"},
		{DefaultInputContext, "input/default.context"},
		{BasicShader, "shaders/basic.glsl"},
		{StartupScene, "scenes/startup.scene"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.id, Of(tt.path), tt.path)

		path, ok := Path(tt.id)
		require.True(t, ok, tt.path)
		assert.Equal(t, tt.path, path)
	}
}

func TestKnownHasNoCollisions(t *testing.T) {
	seen := make(map[ID]string)
	for _, path := range Known() {
		id := Of(path)
		prev, dup := seen[id]
		assert.False(t, dup, "%s collides with %s", path, prev)
		seen[id] = path
	}
	assert.Len(t, seen, 10)
}

func TestUnknownID(t *testing.T) {
	_, ok := Path(Of("not/generated.bin"))
	assert.False(t, ok)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "83dcefb7", Of("1").String())
	assert.Equal(t, "00000000", Of("").String())
}
