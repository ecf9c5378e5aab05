package steamcharts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const topGamesHtml = `
<html><body>
<table id="top-games">
<tbody>
<tr>
  <td class="game-name"><a href="/app/570">Dota 2</a></td>
  <td class="num">612,411</td>
  <td class="num">841,210</td>
</tr>
<tr>
  <td class="game-name"><a href="/app/730">Counter-Strike 2</a></td>
  <td class="num">401,322</td>
  <td class="num">698,104</td>
</tr>
<tr>
  <td class="game-name"><a href="/broken-link">&nbsp;</a></td>
  <td class="num">1</td>
</tr>
</tbody>
</table>
</body></html>`

func TestParseTop(t *testing.T) {
	games, err := parseTop([]byte(topGamesHtml))
	require.NoError(t, err)

	diff := cmp.Diff([]Game{
		{AppId: "570", Name: "Dota 2", Rank: 1, CurrentPlayers: 612411, PeakPlayers: 841210},
		{AppId: "730", Name: "Counter-Strike 2", Rank: 2, CurrentPlayers: 401322, PeakPlayers: 698104},
	}, games)
	require.Empty(t, diff)
}

func TestAppIdFromHref(t *testing.T) {
	require.Equal(t, "570", appIdFromHref("/app/570"))
	require.Equal(t, "", appIdFromHref("/charts"))
	require.Equal(t, "", appIdFromHref(""))
}

func TestParseCount(t *testing.T) {
	require.Equal(t, 612411, parseCount(" 612,411 "))
	require.Equal(t, 0, parseCount("n/a"))
}
