package main

import (
	"net"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAddrMatchesServerPort(t *testing.T) {
	v := viper.New()
	v.SetConfigFile("../../config.yaml")
	require.NoError(t, v.ReadInConfig())

	_, port, err := net.SplitHostPort(defaultAddr)
	require.NoError(t, err)
	assert.Equal(t, v.GetString("server.port"), port)
}
